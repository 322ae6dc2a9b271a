package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rohankatakam/neointerface/internal/graph"

// Result is a fully collected query result.
type Result struct {
	Keys    []string
	Records []*neo4j.Record
}

// queryRunner executes one Cypher statement and collects every record
// before returning.
type queryRunner interface {
	Run(ctx context.Context, operation, cypher string, params map[string]any) (*Result, error)
	Close(ctx context.Context) error
}

// driverRunner runs each statement in its own auto-commit session, so
// statements such as CALL { ... } IN TRANSACTIONS work as well.
type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
	tracer   trace.Tracer
}

func newDriverRunner(driver neo4j.DriverWithContext, database string) *driverRunner {
	return &driverRunner{
		driver:   driver,
		database: database,
		tracer:   otel.Tracer(tracerName),
	}
}

func (r *driverRunner) Run(ctx context.Context, operation, cypher string, params map[string]any) (*Result, error) {
	requestID := uuid.NewString()
	txConfig := GetConfigForOperation(operation).WithCustomMetadata("request_id", requestID)

	ctx, span := r.tracer.Start(ctx, "neo4j."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "neo4j"),
			attribute.String("db.name", r.database),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", cypher),
			attribute.String("neointerface.request_id", requestID),
		))
	defer span.End()

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.database,
		AccessMode:   accessModeFor(operation),
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params, txConfig.AsNeo4jConfig()...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records, err := result.Collect(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	keys, err := result.Keys()
	if err != nil {
		keys = nil
	}

	span.SetAttributes(attribute.Int("db.response.returned_rows", len(records)))
	span.SetStatus(codes.Ok, "")
	return &Result{Keys: keys, Records: records}, nil
}

func (r *driverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

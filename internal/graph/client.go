package graph

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/neointerface/internal/errors"
	"github.com/rohankatakam/neointerface/internal/logging"
)

const driverModule = "github.com/neo4j/neo4j-go-driver/v5"

// Options configures a Client. Use DefaultOptions for the environment-based
// defaults; a zero Options connects to nothing.
type Options struct {
	Host     string
	User     string
	Password string
	// NoAuth connects without credentials.
	NoAuth   bool
	// Database is left to the server's default when empty.
	Database string

	// APOC and RDF declare server plugins the helpers may rely on.
	APOC    bool
	RDF     bool
	RDFHost string

	// Verbose=false discards every log line of the client.
	Verbose bool
	// Debug logs each generated statement with its parameters and raises
	// the given logger to debug level so those lines are written.
	Debug bool
	// Autoconnect makes New connect (and set up RDF) immediately.
	Autoconnect bool

	HTTPClient *http.Client
}

// DefaultOptions reads NEO4J_HOST, NEO4J_USER, NEO4J_PASSWORD and
// NEO4J_RDF_HOST; Verbose and Autoconnect are on.
func DefaultOptions() Options {
	return Options{
		Host:        os.Getenv("NEO4J_HOST"),
		User:        os.Getenv("NEO4J_USER"),
		Password:    os.Getenv("NEO4J_PASSWORD"),
		RDFHost:     os.Getenv("NEO4J_RDF_HOST"),
		Verbose:     true,
		Autoconnect: true,
	}
}

// Client is the facade over one Neo4j driver. Every method is an
// independent round trip in its own session.
type Client struct {
	opts          Options
	driver        neo4j.DriverWithContext
	runner        queryRunner
	logger        logrus.FieldLogger
	http          *http.Client
	rdfHost       string
	serverVersion string
}

// New creates a client. With opts.Autoconnect it connects right away and,
// when opts.RDF is set, prepares the neosemantics endpoint.
func New(ctx context.Context, opts Options, logger logrus.FieldLogger) (*Client, error) {
	c := newClient(opts, logger)
	c.logger.Info("Initializing NeoInterface")

	if opts.Autoconnect {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		if opts.RDF {
			if err := c.RDFSetupConnection(ctx); err != nil {
				c.Close(ctx)
				return nil, err
			}
		}
	}
	return c, nil
}

func newClient(opts Options, logger logrus.FieldLogger) *Client {
	switch {
	case !opts.Verbose:
		logger = logging.Discard()
	case opts.Debug:
		logger = debugLogger(logger)
	case logger == nil:
		logger = logrus.StandardLogger()
	}
	if opts.Host == "" {
		opts.Host = os.Getenv("NEO4J_HOST")
	}
	if !opts.NoAuth && opts.User == "" && opts.Password == "" {
		opts.User, opts.Password = os.Getenv("NEO4J_USER"), os.Getenv("NEO4J_PASSWORD")
	}
	if !opts.NoAuth && opts.User == "" && opts.Password == "" {
		opts.NoAuth = true
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		opts:    opts,
		logger:  logger.WithField("component", "neointerface"),
		http:    httpClient,
		rdfHost: opts.RDFHost,
	}
}

// debugLogger makes sure logger writes debug entries. A nil logger gets a
// debug-level copy of the standard logger so the global level is untouched.
func debugLogger(logger logrus.FieldLogger) logrus.FieldLogger {
	var base *logrus.Logger
	switch l := logger.(type) {
	case nil:
		std := logrus.StandardLogger()
		base = logrus.New()
		base.SetOutput(std.Out)
		base.SetFormatter(std.Formatter)
		logger = base
	case *logrus.Logger:
		base = l
	case *logrus.Entry:
		base = l.Logger
	}
	if base != nil && !base.IsLevelEnabled(logrus.DebugLevel) {
		base.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// Connect creates the driver and checks the server with RETURN 10.
func (c *Client) Connect(ctx context.Context) error {
	auth := neo4j.NoAuth()
	if !c.opts.NoAuth {
		auth = neo4j.BasicAuth(c.opts.User, c.opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(c.opts.Host, auth, func(config *neo4j.Config) {
		config.MaxConnectionPoolSize = 50
		config.ConnectionAcquisitionTimeout = 60 * time.Second
		config.MaxConnectionLifetime = time.Hour
		config.SocketConnectTimeout = 5 * time.Second
		config.SocketKeepalive = true
	})
	if err != nil {
		return errors.ConnectionError(err,
			"CHECK IF NEO4J IS RUNNING! While instantiating the NeoInterface object, failed to create the driver")
	}

	c.driver = driver
	c.runner = newTimingRunner(newDriverRunner(driver, c.opts.Database), c.logger)

	if err := c.testConnection(ctx); err != nil {
		driver.Close(ctx)
		c.driver, c.runner = nil, nil
		return err
	}

	c.detectServerVersion(ctx)
	c.logger.WithField("host", c.opts.Host).Info("Connection established")
	return nil
}

func (c *Client) testConnection(ctx context.Context) error {
	if _, err := c.runner.Run(ctx, opHealthCheck, "RETURN 10", nil); err != nil {
		return errors.ConnectionError(err, fmt.Sprintf(
			"Connection to %s was unsuccessful! Check if NEO4J is running and/or that your credentials are correct.",
			c.opts.Host))
	}
	return nil
}

// detectServerVersion records the kernel version; an unknown version is
// treated as 5.x.
func (c *Client) detectServerVersion(ctx context.Context) {
	res, err := c.runner.Run(ctx, opHealthCheck,
		"CALL dbms.components() YIELD name, versions WHERE name = 'Neo4j Kernel' RETURN versions[0] AS version", nil)
	if err != nil || len(res.Records) == 0 {
		c.logger.WithError(err).Debug("could not determine server version")
		return
	}
	if v, ok := res.Records[0].Get("version"); ok {
		c.serverVersion, _ = v.(string)
	}
}

// HealthCheck runs the RETURN 10 check again.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.runner == nil {
		return errNotConnected()
	}
	return c.testConnection(ctx)
}

// Close terminates the database connection.
func (c *Client) Close(ctx context.Context) error {
	if c.runner == nil {
		return nil
	}
	err := c.runner.Close(ctx)
	c.runner, c.driver = nil, nil
	if err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	c.logger.Debug("neo4j client closed")
	return nil
}

// QueryStats reports per-operation statement counts and durations since
// Connect. It is empty before the client is connected.
func (c *Client) QueryStats() []OperationStats {
	if t, ok := c.runner.(*timingRunner); ok {
		return t.Stats()
	}
	return nil
}

// Version returns the version of the neo4j driver linked into the binary.
func (c *Client) Version() string {
	return DriverVersion()
}

// DriverVersion is Version without a client.
func DriverVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path == driverModule {
			if dep.Replace != nil {
				return strings.TrimPrefix(dep.Replace.Version, "v")
			}
			return strings.TrimPrefix(dep.Version, "v")
		}
	}
	return "unknown"
}

// ServerVersion returns the server kernel version, e.g. "5.15.0", or ""
// when it could not be read.
func (c *Client) ServerVersion() string {
	return c.serverVersion
}

// Host returns the bolt URI the client was configured with.
func (c *Client) Host() string {
	return c.opts.Host
}

// Driver exposes the underlying driver for callers that need sessions.
func (c *Client) Driver() neo4j.DriverWithContext {
	return c.driver
}

// legacySchema reports a 4.x server, which needs the procedure based
// schema commands.
func (c *Client) legacySchema() bool {
	if c.serverVersion == "" {
		return false
	}
	major, err := strconv.Atoi(strings.SplitN(c.serverVersion, ".", 2)[0])
	return err == nil && major < 5
}

func errNotConnected() error {
	return errors.New(errors.ErrorTypeConnection, errors.SeverityCritical,
		"not connected to neo4j: create the client with Autoconnect or call Connect")
}

// run executes one statement through the runner.
func (c *Client) run(ctx context.Context, operation, cypher string, params map[string]any) (*Result, error) {
	if c.runner == nil {
		return nil, errNotConnected()
	}
	if c.opts.Debug {
		c.logger.WithFields(logrus.Fields{
			"operation": operation,
			"params":    params,
		}).Debugf("query: %s", strings.TrimSpace(cypher))
	}

	res, err := c.runner.Run(ctx, operation, cypher, params)
	if err != nil {
		return nil, errors.FromDriver(err, fmt.Sprintf("neo4j %s failed", operation))
	}
	return res, nil
}

// exec runs a statement whose records are not needed.
func (c *Client) exec(ctx context.Context, operation, cypher string, params map[string]any) error {
	_, err := c.run(ctx, operation, cypher, params)
	return err
}

package adapters

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kndndrj/priam/core"
)

var _ core.Adapter = (*Cluster)(nil)

// Cluster collects connection settings and opens gocql sessions. Setters
// can be chained; invalid values are reported by Connect.
type Cluster struct {
	config *gocql.ClusterConfig

	localDC    string
	tokenAware bool
	whitelist  []string

	logger     log.Logger
	registerer prometheus.Registerer

	errs []error
}

type ClusterOption func(*Cluster)

func ClusterWithLogger(logger log.Logger) ClusterOption {
	return func(c *Cluster) {
		if logger == nil {
			return
		}
		c.logger = logger
	}
}

// ClusterWithRegisterer exports per-attempt query latencies to reg.
func ClusterWithRegisterer(reg prometheus.Registerer) ClusterOption {
	return func(c *Cluster) {
		c.registerer = reg
	}
}

func NewCluster(opts ...ClusterOption) *Cluster {
	c := &Cluster{
		config: gocql.NewCluster(),
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cluster) fail(err error) *Cluster {
	c.errs = append(c.errs, err)
	return c
}

// AddHost adds contact points, given as a comma-separated list.
func (c *Cluster) AddHost(hosts string) *Cluster {
	c.config.Hosts = append(c.config.Hosts, splitList(hosts)...)
	return c
}

func (c *Cluster) SetPort(port int) *Cluster {
	if port <= 0 || port > 65535 {
		return c.fail(errors.Errorf("invalid port: %d", port))
	}
	c.config.Port = port
	return c
}

func (c *Cluster) SetKeyspace(keyspace string) *Cluster {
	c.config.Keyspace = keyspace
	return c
}

func (c *Cluster) SetUsernamePassword(username, password string) *Cluster {
	c.config.Authenticator = gocql.PasswordAuthenticator{
		Username: username,
		Password: password,
	}
	return c
}

// SetConsistency sets the default consistency by name, e.g. "LOCAL_QUORUM".
func (c *Cluster) SetConsistency(consistency string) *Cluster {
	cons, err := gocql.ParseConsistencyWrapper(consistency)
	if err != nil {
		return c.fail(errors.WithStack(err))
	}
	c.config.Consistency = cons
	return c
}

func (c *Cluster) SetTimeout(timeout time.Duration) *Cluster {
	c.config.Timeout = timeout
	return c
}

func (c *Cluster) SetConnectTimeout(timeout time.Duration) *Cluster {
	c.config.ConnectTimeout = timeout
	return c
}

func (c *Cluster) SetNumConns(n int) *Cluster {
	if n <= 0 {
		return c.fail(errors.Errorf("invalid number of connections: %d", n))
	}
	c.config.NumConns = n
	return c
}

func (c *Cluster) SetSSL(caPath string, hostVerification bool) *Cluster {
	c.config.SslOpts = &gocql.SslOptions{
		CaPath:                 caPath,
		EnableHostVerification: hostVerification,
	}
	return c
}

func (c *Cluster) SetRoundRobinLoadBalancing() *Cluster {
	c.localDC = ""
	return c
}

// SetDatacenterAwareLoadBalancing prefers hosts of localDC and falls back to
// remote datacenters.
func (c *Cluster) SetDatacenterAwareLoadBalancing(localDC string) *Cluster {
	if localDC == "" {
		return c.fail(errors.New("empty local datacenter"))
	}
	c.localDC = localDC
	return c
}

// SetTokenAwareRouting wraps the load balancing policy so statements go to
// replicas of their partition key first.
func (c *Cluster) SetTokenAwareRouting(enabled bool) *Cluster {
	c.tokenAware = enabled
	return c
}

// SetHeartbeatInterval sets the TCP keepalive period of connections.
func (c *Cluster) SetHeartbeatInterval(interval time.Duration) *Cluster {
	c.config.SocketKeepalive = interval
	return c
}

// SetWhitelistHosts restricts connections to a comma-separated list of hosts.
func (c *Cluster) SetWhitelistHosts(hosts string) *Cluster {
	c.whitelist = splitList(hosts)
	return c
}

func (c *Cluster) SetRetries(n int) *Cluster {
	if n < 0 {
		return c.fail(errors.Errorf("invalid number of retries: %d", n))
	}
	c.config.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: n}
	return c
}

func (c *Cluster) SetProtoVersion(version int) *Cluster {
	c.config.ProtoVersion = version
	return c
}

func (c *Cluster) SetDisableInitialHostLookup(disable bool) *Cluster {
	c.config.DisableInitialHostLookup = disable
	return c
}

func (c *Cluster) hostSelectionPolicy() gocql.HostSelectionPolicy {
	var policy gocql.HostSelectionPolicy
	if c.localDC != "" {
		policy = gocql.DCAwareRoundRobinPolicy(c.localDC)
	} else {
		policy = gocql.RoundRobinHostPolicy()
	}

	if c.tokenAware {
		policy = gocql.TokenAwareHostPolicy(policy)
	}
	return policy
}

// clusterConfig returns a copy of the driver config with fresh policies, as
// policies hold per-session state.
func (c *Cluster) clusterConfig() (*gocql.ClusterConfig, error) {
	if len(c.errs) > 0 {
		return nil, c.errs[0]
	}
	if len(c.config.Hosts) == 0 {
		return nil, errors.New("no hosts configured")
	}

	cfg := *c.config
	cfg.Hosts = append([]string{}, c.config.Hosts...)
	cfg.PoolConfig.HostSelectionPolicy = c.hostSelectionPolicy()
	if len(c.whitelist) > 0 {
		cfg.HostFilter = gocql.WhiteListHostFilter(c.whitelist...)
	}
	observer, err := newObserver(c.registerer)
	if err != nil {
		return nil, err
	}
	cfg.QueryObserver = observer

	return &cfg, nil
}

// Connect opens a session against the cluster.
func (c *Cluster) Connect() (core.Session, error) {
	cfg, err := c.clusterConfig()
	if err != nil {
		return nil, err
	}

	session, err := cfg.CreateSession()
	if err != nil {
		return nil, errors.Wrap(err, "gocql.CreateSession")
	}

	level.Info(c.logger).Log("msg", "connected to cluster", "hosts", len(cfg.Hosts), "keyspace", cfg.Keyspace)

	return &cassandraSession{
		session: session,
		logger:  c.logger,
	}, nil
}

// NewClusterFromConfig validates cfg and builds a cluster with its settings.
func NewClusterFromConfig(cfg *Config, opts ...ClusterOption) (*Cluster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := NewCluster(opts...).
		AddHost(cfg.Addresses).
		SetPort(cfg.Port).
		SetKeyspace(cfg.Keyspace).
		SetConsistency(cfg.Consistency).
		SetTimeout(cfg.Timeout).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetProtoVersion(cfg.ProtoVersion).
		SetDisableInitialHostLookup(cfg.DisableInitialHostLookup).
		SetTokenAwareRouting(cfg.TokenAware).
		SetHeartbeatInterval(cfg.HeartbeatInterval).
		SetRetries(cfg.Retries)

	if cfg.NumConnections > 0 {
		c.SetNumConns(cfg.NumConnections)
	}
	if cfg.SSL {
		c.SetSSL(cfg.CAPath, cfg.HostVerification)
	}
	if cfg.Auth {
		c.SetUsernamePassword(cfg.Username, cfg.Password)
	}
	if cfg.LocalDC != "" {
		c.SetDatacenterAwareLoadBalancing(cfg.LocalDC)
	} else {
		c.SetRoundRobinLoadBalancing()
	}
	if cfg.HostWhitelist != "" {
		c.SetWhitelistHosts(cfg.HostWhitelist)
	}

	if len(c.errs) > 0 {
		return nil, c.errs[0]
	}
	return c, nil
}

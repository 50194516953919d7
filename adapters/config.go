package adapters

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config for a cluster connection. It can be filled from flags, from a yaml
// file or both, file values taking precedence.
type Config struct {
	Type                     string        `yaml:"type"`
	Addresses                string        `yaml:"addresses"`
	Port                     int           `yaml:"port"`
	Keyspace                 string        `yaml:"keyspace"`
	Consistency              string        `yaml:"consistency"`
	DisableInitialHostLookup bool          `yaml:"disable_initial_host_lookup"`
	SSL                      bool          `yaml:"ssl"`
	HostVerification         bool          `yaml:"host_verification"`
	CAPath                   string        `yaml:"ca_path"`
	Auth                     bool          `yaml:"auth"`
	Username                 string        `yaml:"username"`
	Password                 string        `yaml:"password"`
	Timeout                  time.Duration `yaml:"timeout"`
	ConnectTimeout           time.Duration `yaml:"connect_timeout"`
	NumConnections           int           `yaml:"num_connections"`
	ProtoVersion             int           `yaml:"proto_version"`
	LocalDC                  string        `yaml:"local_dc"`
	TokenAware               bool          `yaml:"token_aware"`
	HostWhitelist            string        `yaml:"host_whitelist"`
	Retries                  int           `yaml:"retries"`
	HeartbeatInterval        time.Duration `yaml:"heartbeat_interval"`
}

// RegisterFlags adds the flags required to config this to the given FlagSet
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&cfg.Type, "cassandra.type", "cassandra", "Type of the cluster (cassandra, scylla).")
	f.StringVar(&cfg.Addresses, "cassandra.addresses", "127.0.0.1", "Comma-separated hostnames or ips of Cassandra instances.")
	f.IntVar(&cfg.Port, "cassandra.port", 9042, "Port that Cassandra is running on")
	f.StringVar(&cfg.Keyspace, "cassandra.keyspace", "", "Keyspace to use in Cassandra.")
	f.StringVar(&cfg.Consistency, "cassandra.consistency", "QUORUM", "Consistency level for Cassandra.")
	f.BoolVar(&cfg.DisableInitialHostLookup, "cassandra.disable-initial-host-lookup", false, "Instruct the cassandra driver to not attempt to get host info from the system.peers table.")
	f.BoolVar(&cfg.SSL, "cassandra.ssl", false, "Use SSL when connecting to cassandra instances.")
	f.BoolVar(&cfg.HostVerification, "cassandra.host-verification", true, "Require SSL certificate validation.")
	f.StringVar(&cfg.CAPath, "cassandra.ca-path", "", "Path to certificate file to verify the peer.")
	f.BoolVar(&cfg.Auth, "cassandra.auth", false, "Enable password authentication when connecting to cassandra.")
	f.StringVar(&cfg.Username, "cassandra.username", "", "Username to use when connecting to cassandra.")
	f.StringVar(&cfg.Password, "cassandra.password", "", "Password to use when connecting to cassandra.")
	f.DurationVar(&cfg.Timeout, "cassandra.timeout", 600*time.Millisecond, "Timeout of requests to cassandra.")
	f.DurationVar(&cfg.ConnectTimeout, "cassandra.connect-timeout", 5*time.Second, "Timeout when connecting to cassandra.")
	f.IntVar(&cfg.NumConnections, "cassandra.num-connections", 2, "Number of connections per host.")
	f.IntVar(&cfg.ProtoVersion, "cassandra.proto-version", 4, "Native protocol version, 0 to discover.")
	f.StringVar(&cfg.LocalDC, "cassandra.local-dc", "", "Prefer hosts of this datacenter. Round robin over all hosts when empty.")
	f.BoolVar(&cfg.TokenAware, "cassandra.token-aware", true, "Route statements to replicas of their partition key.")
	f.StringVar(&cfg.HostWhitelist, "cassandra.host-whitelist", "", "Comma-separated hosts the driver is allowed to connect to.")
	f.IntVar(&cfg.Retries, "cassandra.retries", 0, "Number of times a failed statement is retried.")
	f.DurationVar(&cfg.HeartbeatInterval, "cassandra.heartbeat-interval", 30*time.Second, "TCP keepalive interval of connections, 0 to disable.")
}

// LoadConfig overrides cfg with the values of a yaml file and expands
// {{ env "X" }} and {{ exec "cmd" }} templates in its string fields.
func LoadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}

	for _, field := range []*string{
		&cfg.Addresses,
		&cfg.Keyspace,
		&cfg.CAPath,
		&cfg.Username,
		&cfg.Password,
		&cfg.LocalDC,
		&cfg.HostWhitelist,
	} {
		expanded, err := expand(*field)
		if err != nil {
			return errors.Wrapf(err, "expand config %s", path)
		}
		*field = expanded
	}

	return nil
}

// Validate checks the config for values the driver would reject.
func (cfg *Config) Validate() error {
	if len(splitList(cfg.Addresses)) == 0 {
		return errors.New("no cassandra addresses configured")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.Errorf("invalid port: %d", cfg.Port)
	}
	if _, err := gocql.ParseConsistencyWrapper(cfg.Consistency); err != nil {
		return errors.WithStack(err)
	}
	if cfg.ProtoVersion < 0 || cfg.ProtoVersion > 5 {
		return errors.Errorf("unsupported protocol version: %d", cfg.ProtoVersion)
	}
	if cfg.Auth && cfg.Username == "" {
		return errors.New("password authentication enabled without a username")
	}
	if cfg.NumConnections < 0 || cfg.Retries < 0 {
		return errors.New("connection and retry counts must not be negative")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package testhelpers

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-kit/log"
	tc "github.com/testcontainers/testcontainers-go"
	tccassandra "github.com/testcontainers/testcontainers-go/modules/cassandra"

	"github.com/kndndrj/priam/adapters"
	"github.com/kndndrj/priam/core"
)

type CassandraContainer struct {
	*tccassandra.CassandraContainer
	Config *adapters.Config
	Client *core.Client
}

// NewCassandraContainer starts a seeded cassandra container and connects a
// client to it. Host, port and type of cfg are overwritten, the keyspace
// defaults to the seeded one.
func NewCassandraContainer(ctx context.Context, cfg *adapters.Config, opts ...core.ClientOption) (*CassandraContainer, error) {
	seedFile, err := GetTestDataFile("cassandra_seed.cql")
	if err != nil {
		return nil, err
	}

	ctr, err := tccassandra.Run(
		ctx,
		"cassandra:4.1.3",
		tc.CustomizeRequest(tc.GenericContainerRequest{
			ProviderType: GetContainerProvider(),
		}),
		tccassandra.WithInitScripts(seedFile),
	)
	if err != nil {
		return nil, err
	}

	hostPort, err := ctr.ConnectionHost(ctx)
	if err != nil {
		return nil, err
	}
	host, rawPort, err := net.SplitHostPort(hostPort)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return nil, err
	}

	cfg.Type = "cassandra"
	cfg.Addresses = host
	cfg.Port = port
	// the container advertises its internal address
	cfg.DisableInitialHostLookup = true
	if cfg.Keyspace == "" {
		cfg.Keyspace = "dev"
	}
	if cfg.Consistency == "" {
		cfg.Consistency = "ONE"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &CassandraContainer{
		CassandraContainer: ctr,
		Config:             cfg,
		Client:             client,
	}, nil
}

// NewClient connects a new client with cfg.
func NewClient(cfg *adapters.Config, opts ...core.ClientOption) (*core.Client, error) {
	adapter, err := (&adapters.Mux{}).GetAdapter(cfg, adapters.ClusterWithLogger(log.NewNopLogger()))
	if err != nil {
		return nil, err
	}
	return core.NewClient(adapter, opts...)
}

// Pause freezes the container processes, so open connections stay up but
// nothing answers. The returned function resumes the container.
func (c *CassandraContainer) Pause(ctx context.Context) (func() error, error) {
	cli, err := tc.NewDockerClientWithOpts(ctx)
	if err != nil {
		return nil, err
	}

	id := c.GetContainerID()
	if err := cli.ContainerPause(ctx, id); err != nil {
		_ = cli.Close()
		return nil, err
	}

	return func() error {
		defer cli.Close()
		return cli.ContainerUnpause(ctx, id)
	}, nil
}

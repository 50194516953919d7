package adapters

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestCluster_Setters(t *testing.T) {
	r := require.New(t)

	c := NewCluster().
		AddHost("10.0.0.1, 10.0.0.2").
		AddHost("10.0.0.3").
		SetPort(9142).
		SetKeyspace("ks").
		SetUsernamePassword("user", "secret").
		SetConsistency("LOCAL_QUORUM").
		SetTimeout(time.Second).
		SetConnectTimeout(3 * time.Second).
		SetNumConns(4).
		SetSSL("/etc/ca.pem", true).
		SetHeartbeatInterval(10 * time.Second).
		SetRetries(2).
		SetProtoVersion(4).
		SetDisableInitialHostLookup(true)

	cfg, err := c.clusterConfig()
	r.NoError(err)

	r.Equal([]string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, cfg.Hosts)
	r.Equal(9142, cfg.Port)
	r.Equal("ks", cfg.Keyspace)
	r.Equal(gocql.PasswordAuthenticator{Username: "user", Password: "secret"}, cfg.Authenticator)
	r.Equal(gocql.LocalQuorum, cfg.Consistency)
	r.Equal(time.Second, cfg.Timeout)
	r.Equal(3*time.Second, cfg.ConnectTimeout)
	r.Equal(4, cfg.NumConns)
	r.Equal("/etc/ca.pem", cfg.SslOpts.CaPath)
	r.True(cfg.SslOpts.EnableHostVerification)
	r.Equal(10*time.Second, cfg.SocketKeepalive)
	r.Equal(&gocql.SimpleRetryPolicy{NumRetries: 2}, cfg.RetryPolicy)
	r.Equal(4, cfg.ProtoVersion)
	r.True(cfg.DisableInitialHostLookup)
	r.NotNil(cfg.PoolConfig.HostSelectionPolicy)
	r.NotNil(cfg.QueryObserver)
	r.Nil(cfg.HostFilter)
}

func TestCluster_Policies(t *testing.T) {
	r := require.New(t)

	c := NewCluster().
		AddHost("10.0.0.1").
		SetDatacenterAwareLoadBalancing("dc1").
		SetTokenAwareRouting(true).
		SetWhitelistHosts("10.0.0.1")

	cfg, err := c.clusterConfig()
	r.NoError(err)
	r.NotNil(cfg.HostFilter)

	// each session gets its own policy
	other, err := c.clusterConfig()
	r.NoError(err)
	r.NotSame(cfg.PoolConfig.HostSelectionPolicy, other.PoolConfig.HostSelectionPolicy)
}

func TestCluster_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		cluster *Cluster
	}{
		{name: "no hosts", cluster: NewCluster()},
		{name: "port", cluster: NewCluster().AddHost("a").SetPort(0)},
		{name: "consistency", cluster: NewCluster().AddHost("a").SetConsistency("SOME")},
		{name: "connections", cluster: NewCluster().AddHost("a").SetNumConns(0)},
		{name: "retries", cluster: NewCluster().AddHost("a").SetRetries(-1)},
		{name: "datacenter", cluster: NewCluster().AddHost("a").SetDatacenterAwareLoadBalancing("")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.cluster.Connect()
			require.Error(t, err)
		})
	}
}

func TestNewClusterFromConfig(t *testing.T) {
	r := require.New(t)

	cfg := defaultConfig(t)
	cfg.Addresses = "cass-1,cass-2"
	cfg.Auth = true
	cfg.Username = "priam"
	cfg.LocalDC = "dc1"

	reg := prometheus.NewRegistry()
	c, err := NewClusterFromConfig(cfg, ClusterWithRegisterer(reg))
	r.NoError(err)
	r.Equal("dc1", c.localDC)
	r.True(c.tokenAware)

	first, err := c.clusterConfig()
	r.NoError(err)
	r.Equal([]string{"cass-1", "cass-2"}, first.Hosts)
	r.Equal(gocql.Quorum, first.Consistency)

	// registering the observer twice reuses the histogram
	_, err = c.clusterConfig()
	r.NoError(err)

	cfg.Port = -1
	_, err = NewClusterFromConfig(cfg)
	r.Error(err)
}

func TestMux(t *testing.T) {
	r := require.New(t)

	mux := &Mux{}
	r.Contains(mux.Types(), "cassandra")
	r.Contains(mux.Types(), "scylla")

	cfg := defaultConfig(t)
	adapter, err := mux.GetAdapter(cfg)
	r.NoError(err)
	r.IsType(&Cluster{}, adapter)

	cfg.Type = "postgres"
	_, err = mux.GetAdapter(cfg)
	r.ErrorIs(err, ErrUnsupportedTypeAlias)
}

func TestFrameTuple(t *testing.T) {
	r := require.New(t)

	out := frameTuple([]rawCell{{data: []byte{7}}, {data: nil}, {data: []byte{}}})
	r.Equal([]byte{
		0, 0, 0, 1, 7,
		0xff, 0xff, 0xff, 0xff,
		0, 0, 0, 0,
	}, out)
}

func TestPreparable(t *testing.T) {
	r := require.New(t)

	r.True(preparable("SELECT * FROM t WHERE k = ?"))
	r.True(preparable("  insert into t (k) values (?)"))
	r.True(preparable("BEGIN BATCH INSERT INTO t (k) VALUES (1) APPLY BATCH"))
	r.False(preparable("CREATE TABLE t (k int PRIMARY KEY)"))
	r.False(preparable("USE ks"))
	r.False(preparable(""))
}

func TestRawCell(t *testing.T) {
	r := require.New(t)

	data := []byte{1, 2}
	var c rawCell
	r.NoError(c.UnmarshalCQL(nil, data))
	data[0] = 9
	r.Equal([]byte{1, 2}, c.data)

	r.NoError(c.UnmarshalCQL(nil, nil))
	r.Nil(c.data)
}

func TestNewObserver(t *testing.T) {
	r := require.New(t)

	reg := prometheus.NewRegistry()
	first, err := newObserver(reg)
	r.NoError(err)
	second, err := newObserver(reg)
	r.NoError(err)
	r.Same(first.requestDuration, second.requestDuration)

	noReg, err := newObserver(nil)
	r.NoError(err)
	r.NotNil(noReg.requestDuration)

	// same descriptor, different collector type
	conflicting := prometheus.NewRegistry()
	conflicting.MustRegister(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "priam",
		Name:      "cassandra_request_duration_seconds",
		Help:      "Time spent doing Cassandra requests.",
	}, []string{"keyspace", "status_code"}))
	_, err = newObserver(conflicting)
	r.ErrorContains(err, "already registered")

	// same name, different help
	mismatched := prometheus.NewRegistry()
	mismatched.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "priam_cassandra_request_duration_seconds",
		Help: "Something else.",
	}))
	_, err = newObserver(mismatched)
	r.ErrorContains(err, "register cassandra request duration")

	_, err = NewCluster(ClusterWithRegisterer(mismatched)).AddHost("127.0.0.1").clusterConfig()
	r.Error(err)
}

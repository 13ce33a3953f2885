package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/iot-lab/coapdash/pkg/coap"
	"github.com/iot-lab/coapdash/pkg/coap/coaptest"
	"github.com/iot-lab/coapdash/pkg/config"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
	"github.com/iot-lab/coapdash/pkg/registry"
	"github.com/iot-lab/coapdash/pkg/snapshotter"
)

func stubNodes(t *testing.T, fake *coaptest.Fake, ids []node.ID, listErr error) {
	t.Helper()
	origTransport, origLister := newTransport, newLister
	t.Cleanup(func() {
		newTransport, newLister = origTransport, origLister
	})

	newTransport = func(*config.Config) coap.Transport { return fake }
	newLister = func(*config.Config, string) (registry.Lister, error) {
		return registry.ListerFunc(func(context.Context) ([]node.ID, error) {
			return ids, listErr
		}), nil
	}
}

func testFake() *coaptest.Fake {
	fake := coaptest.NewFake()
	fake.Handle("2001:db8::1", "GET", node.DiscoveryPath, coaptest.JSON(coaptest.Discovery{
		Board: "native",
		Paths: []coaptest.DiscoveryPath{
			{Path: "/temperature", Method: "GET"},
			{Path: "/led", Method: "PUT"},
		},
	}))
	fake.Handle("2001:db8::1", "GET", "/temperature", coaptest.Text("19"))
	fake.Handle("2001:db8::1", "PUT", "/led", coaptest.Text(""))
	fake.Handle("2001:db8::2", "GET", node.DiscoveryPath, coaptest.Unreachable())
	return fake
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.Writer = &out
	err := cmd.Run(context.Background(), append([]string{name}, args...))
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"serve", "registry", "snapshot", "led", "nodes"}, names)
}

func TestSnapshotCommand(t *testing.T) {
	stubNodes(t, testFake(), []node.ID{"2001:db8::1", "2001:db8::2"}, nil)

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "snapshot.json")
		_, err := run(t, "snapshot", "--format", "json", "--output", path)
		require.NoError(t, err)

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		var snap snapshotter.Snapshot
		require.NoError(t, json.Unmarshal(b, &snap))
		require.Len(t, snap.Records, 2)
		assert.Equal(t, "19", snap.Records[0].Values["temperature"])
		require.NotNil(t, snap.Records[1].Failure)
		assert.Equal(t, cnserrors.ErrCodeDiscoveryTransport, snap.Records[1].Failure.Code)
	})

	t.Run("table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "snapshot.txt")
		_, err := run(t, "snapshot", "--output", path)
		require.NoError(t, err)

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(b), "2001:db8::1")
		assert.Contains(t, string(b), "temperature=19")
		assert.Contains(t, string(b), "DISCOVERY_TRANSPORT")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, "snapshot", "--format", "xml")
		assert.ErrorContains(t, err, "unknown output format")
	})
}

func TestSnapshotCommandRegistryFailure(t *testing.T) {
	stubNodes(t, coaptest.NewFake(), nil,
		cnserrors.New(cnserrors.ErrCodeRegistryUnreachable, "refused"))

	_, err := run(t, "snapshot", "--format", "json", "--output", filepath.Join(t.TempDir(), "s.json"))
	require.Error(t, err)
	assert.True(t, cnserrors.IsCode(err, cnserrors.ErrCodeRegistryUnreachable))
}

func TestLedCommand(t *testing.T) {
	ids := []node.ID{"2001:db8::1", "2001:db8::2"}

	puts := func(fake *coaptest.Fake) []string {
		var out []string
		for _, c := range fake.Calls() {
			if c.Method == "PUT" {
				out = append(out, string(c.Node)+c.Path+"="+string(c.Body))
			}
		}
		return out
	}

	t.Run("by index", func(t *testing.T) {
		fake := testFake()
		stubNodes(t, fake, ids, nil)

		out, err := run(t, "led", "--index", "0", "--state", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "2001:db8::1")
		assert.Equal(t, []string{"2001:db8::1/led=1"}, puts(fake))
	})

	t.Run("by node", func(t *testing.T) {
		fake := testFake()
		stubNodes(t, fake, nil, nil)

		_, err := run(t, "led", "--node", "2001:db8::1", "--state", "0")
		require.NoError(t, err)
		assert.Equal(t, []string{"2001:db8::1/led=0"}, puts(fake))
	})

	t.Run("index out of range", func(t *testing.T) {
		fake := testFake()
		stubNodes(t, fake, ids, nil)

		_, err := run(t, "led", "--index", "5", "--state", "1")
		assert.ErrorContains(t, err, "no node at index 5")
		assert.Empty(t, puts(fake))
	})

	t.Run("no target", func(t *testing.T) {
		stubNodes(t, testFake(), ids, nil)

		_, err := run(t, "led", "--state", "1")
		assert.ErrorContains(t, err, "--node or --index")
	})

	t.Run("missing state", func(t *testing.T) {
		stubNodes(t, testFake(), ids, nil)

		_, err := run(t, "led", "--index", "0")
		assert.Error(t, err)
	})

	t.Run("write fails", func(t *testing.T) {
		fake := coaptest.NewFake()
		fake.Handle("2001:db8::2", "PUT", "/led", coaptest.Unreachable())
		stubNodes(t, fake, ids, nil)

		_, err := run(t, "led", "--index", "1", "--state", "1")
		require.Error(t, err)
		assert.True(t, cnserrors.IsCode(err, cnserrors.ErrCodeWriteTransport))
	})
}

func TestNodesCommand(t *testing.T) {
	stubNodes(t, coaptest.NewFake(), []node.ID{"2001:db8::1", "2001:db8::2"}, nil)

	path := filepath.Join(t.TempDir(), "nodes.json")
	_, err := run(t, "nodes", "--format", "json", "--output", path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var list registry.NodeList
	require.NoError(t, json.Unmarshal(b, &list))
	assert.Equal(t, []string{"2001:db8::1", "2001:db8::2"}, list.Nodes)

	tablePath := filepath.Join(t.TempDir(), "nodes.txt")
	_, err = run(t, "nodes", "--output", tablePath)
	require.NoError(t, err)
	b, err = os.ReadFile(tablePath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "2001:db8::2")
}

func TestLoadConfigLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coapdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: warn\n"), 0o600))

	load := func(args ...string) *config.Config {
		var cfg *config.Config
		cmd := &cli.Command{
			Flags: []cli.Flag{configFlag(), logLevelFlag()},
			Action: func(_ context.Context, c *cli.Command) error {
				var err error
				cfg, err = loadConfig(c)
				return err
			},
		}
		require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
		return cfg
	}

	assert.Equal(t, "warn", load("--config", path).LogLevel)
	assert.Equal(t, "debug", load("--config", path, "--log-level", "debug").LogLevel)
}

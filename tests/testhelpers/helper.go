// Package testhelpers provides helpers for integration tests.
package testhelpers

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"

	"github.com/kndndrj/priam/core"
)

// eventTimeout is the maximum time to wait for a call to finish
const eventTimeout = 30 * time.Second

// errTimeOut is an error for when a call did not finish within the expected time.
var errTimeOut = fmt.Errorf("call did not finish within %v", eventTimeout)

// GetContainerProvider returns the container provider type to use for the tests.
// If we detect podman is available, we use it, otherwise we use docker.
func GetContainerProvider() testcontainers.ProviderType {
	if _, err := exec.LookPath("podman"); err == nil {
		fmt.Println("Podman detected. Remember to set TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED=true;")
		return testcontainers.ProviderPodman
	}
	return testcontainers.ProviderDocker
}

// Result is a copy of a core.Result, usable after the callback returned.
type Result struct {
	Status  core.StatusCode
	Message string
	Columns []string
	Types   []core.DataType
	Rows    [][]any
	// Deliveries counts how many times the callback was called.
	Deliveries int
}

// Execute runs stmt and waits for the call to finish. Every row is decoded
// with core.Row.Values inside the callback.
func Execute(t *testing.T, client *core.Client, stmt *core.Statement, timeout time.Duration) (*Result, error) {
	t.Helper()

	out := &Result{}
	call := client.ExecuteStatement(stmt, func(result *core.Result) {
		out.Deliveries++
		out.Status = result.GetStatusCode()
		out.Message = result.GetStatusMessage()
		for _, col := range result.GetColumns() {
			out.Columns = append(out.Columns, col.Name)
			out.Types = append(out.Types, col.DataType())
		}

		err := result.ForEachRow(func(row core.Row) {
			values, err := row.Values()
			assert.NoError(t, err)
			out.Rows = append(out.Rows, values)
		})
		assert.NoError(t, err)
	}, timeout)

	select {
	case <-call.Done():
		return out, nil
	case <-time.After(eventTimeout):
		return nil, errTimeOut
	}
}

// Query prepares query, binds args with Statement.Bind and executes it.
func Query(t *testing.T, client *core.Client, query string, args ...any) (*Result, error) {
	t.Helper()

	prepared, err := client.CreatePrepared(t.Name(), query)
	if err != nil {
		return nil, err
	}
	defer prepared.Release()

	stmt := prepared.CreateStatement()
	for i, arg := range args {
		if !stmt.Bind(arg, i) {
			stmt.Discard()
			return nil, fmt.Errorf("failed binding %v to parameter %d", arg, i)
		}
	}

	return Execute(t, client, stmt, 10*time.Second)
}

// GetTestDataPath returns the path to the testdata directory.
func GetTestDataPath() (string, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get current file path")
	}

	return filepath.Join(filepath.Dir(currentFile), "../testdata"), nil
}

// GetTestDataFile returns the path of a file in the testdata directory.
func GetTestDataFile(filename string) (string, error) {
	testDataPath, err := GetTestDataPath()
	if err != nil {
		return "", err
	}

	return filepath.Join(testDataPath, filename), nil
}

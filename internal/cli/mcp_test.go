package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/ctxpack/internal/bundle"
	"github.com/temirov/ctxpack/internal/services/mcp"
)

const listeningPrefix = "command server listening on "

var serverProjectRoot = filepath.FromSlash("/workspace/project")

// lockedBuffer lets the test poll output written by the server goroutine.
type lockedBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (locked *lockedBuffer) Write(data []byte) (int, error) {
	locked.mutex.Lock()
	defer locked.mutex.Unlock()
	return locked.buffer.Write(data)
}

func (locked *lockedBuffer) String() string {
	locked.mutex.Lock()
	defer locked.mutex.Unlock()
	return locked.buffer.String()
}

func newServerFileSystem(t *testing.T) afero.Fs {
	t.Helper()
	fileSystem := afero.NewMemMapFs()
	files := map[string]string{
		"main.go":        "package main\n",
		"docs/readme.md": "# readme\n",
		".gitignore":     "build/\n",
		"build/out.bin":  "artifact",
	}
	for relativePath, content := range files {
		absolutePath := filepath.Join(serverProjectRoot, filepath.FromSlash(relativePath))
		if mkdirErr := fileSystem.MkdirAll(filepath.Dir(absolutePath), 0o755); mkdirErr != nil {
			t.Fatalf("create directory: %v", mkdirErr)
		}
		if writeErr := afero.WriteFile(fileSystem, absolutePath, []byte(content), 0o644); writeErr != nil {
			t.Fatalf("write file: %v", writeErr)
		}
	}
	return fileSystem
}

func startTestServer(t *testing.T, fileSystem afero.Fs) (string, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	output := &lockedBuffer{}
	done := make(chan error, 1)
	dependencies := applicationDependencies{logger: zap.NewNop(), fileSystem: fileSystem}
	go func() {
		done <- startMCPServer(ctx, output, dependencies, "127.0.0.1:0")
	}()
	address := waitForServerAddress(t, output)
	return address, func() {
		cancel()
		if err := <-done; err != nil {
			t.Fatalf("server shutdown error: %v", err)
		}
	}
}

func waitForServerAddress(t *testing.T, output *lockedBuffer) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, line := range strings.Split(output.String(), "\n") {
			if strings.HasPrefix(line, listeningPrefix) {
				return strings.TrimPrefix(line, listeningPrefix)
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server address not reported: %s", output.String())
	return ""
}

func postBundle(t *testing.T, address string, body string) (int, mcp.CommandResponse) {
	t.Helper()
	client := http.Client{Timeout: 2 * time.Second}
	request, requestErr := http.NewRequest(http.MethodPost, "http://"+address+"/commands/bundle", strings.NewReader(body))
	if requestErr != nil {
		t.Fatalf("create request: %v", requestErr)
	}
	request.Header.Set("Content-Type", "application/json")
	response, responseErr := client.Do(request)
	if responseErr != nil {
		t.Fatalf("execute request: %v", responseErr)
	}
	defer response.Body.Close()

	var decoded mcp.CommandResponse
	if response.StatusCode == http.StatusOK {
		if decodeErr := json.NewDecoder(response.Body).Decode(&decoded); decodeErr != nil {
			t.Fatalf("decode response: %v", decodeErr)
		}
	}
	return response.StatusCode, decoded
}

func TestStartMCPServerServesCapabilities(t *testing.T) {
	t.Parallel()

	address, stop := startTestServer(t, newServerFileSystem(t))
	defer stop()

	client := http.Client{Timeout: 2 * time.Second}
	response, err := client.Get("http://" + address + "/capabilities")
	if err != nil {
		t.Fatalf("perform request: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", response.StatusCode)
	}
	var body struct {
		Capabilities []mcp.Capability `json:"capabilities"`
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	expected := mcpCapabilities()
	if len(body.Capabilities) != len(expected) {
		t.Fatalf("expected %d capabilities, got %d", len(expected), len(body.Capabilities))
	}
	for index, capability := range expected {
		if body.Capabilities[index] != capability {
			t.Fatalf("capability %d mismatch: got %+v, want %+v", index, body.Capabilities[index], capability)
		}
	}
}

func TestStartMCPServerExecutesBundleCommand(t *testing.T) {
	t.Parallel()

	address, stop := startTestServer(t, newServerFileSystem(t))
	defer stop()

	rootJSON, _ := json.Marshal(serverProjectRoot)

	testCases := []struct {
		name             string
		body             string
		expectedCode     int
		expectedStatus   bundle.Status
		expectedContains []string
		expectedAbsent   []string
	}{
		{
			name:           "bundles_whole_project",
			body:           `{"root":` + string(rootJSON) + `,"paths":["."],"model":"approx"}`,
			expectedCode:   http.StatusOK,
			expectedStatus: bundle.StatusOK,
			expectedContains: []string{
				"<project_tree>\nproject/\n",
				`<file name="main.go" path="/main.go">`,
				`<file name="readme.md" path="/docs/readme.md">`,
			},
			expectedAbsent: []string{"out.bin"},
		},
		{
			name:             "honors_disabled_gitignore",
			body:             `{"root":` + string(rootJSON) + `,"paths":["build"],"mode":"none","model":"approx","useGitignore":false}`,
			expectedCode:     http.StatusOK,
			expectedStatus:   bundle.StatusOK,
			expectedContains: []string{`path="/build/out.bin"`},
			expectedAbsent:   []string{"<project_tree>"},
		},
		{
			name:           "reports_empty_selection",
			body:           `{"root":` + string(rootJSON) + `,"paths":[],"mode":"none","model":"approx"}`,
			expectedCode:   http.StatusOK,
			expectedStatus: bundle.StatusNoSelectionTreeNone,
		},
		{
			name:           "applies_pattern_rules",
			body:           `{"root":` + string(rootJSON) + `,"paths":["."],"model":"approx","patterns":{"ignore":["docs/"]}}`,
			expectedCode:   http.StatusOK,
			expectedStatus: bundle.StatusOK,
			expectedAbsent: []string{"readme.md"},
		},
		{
			name:         "rejects_missing_root",
			body:         `{"paths":["."]}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "rejects_unknown_mode",
			body:         `{"root":` + string(rootJSON) + `,"mode":"tree"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "rejects_malformed_json",
			body:         `{"root":`,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			statusCode, response := postBundle(t, address, testCase.body)
			if statusCode != testCase.expectedCode {
				t.Fatalf("expected status code %d, got %d", testCase.expectedCode, statusCode)
			}
			if statusCode != http.StatusOK {
				return
			}
			if response.Status != string(testCase.expectedStatus) {
				t.Fatalf("expected bundle status %q, got %q (%s)", testCase.expectedStatus, response.Status, response.Message)
			}
			if response.Format != responseFormatXML {
				t.Fatalf("unexpected format: %s", response.Format)
			}
			if testCase.expectedStatus != bundle.StatusOK {
				if response.Output != "" || response.Message == "" {
					t.Fatalf("expected message without output, got %+v", response)
				}
				return
			}
			for _, fragment := range testCase.expectedContains {
				if !strings.Contains(response.Output, fragment) {
					t.Fatalf("expected output to contain %q:\n%s", fragment, response.Output)
				}
			}
			for _, fragment := range testCase.expectedAbsent {
				if strings.Contains(response.Output, fragment) {
					t.Fatalf("expected output to omit %q:\n%s", fragment, response.Output)
				}
			}
			if response.TokensUsed <= 0 {
				t.Fatalf("expected tokens to be reported, got %d", response.TokensUsed)
			}
		})
	}
}

func TestStartMCPServerResolvesRelativeRoot(t *testing.T) {
	t.Parallel()

	workingDirectory, workingDirectoryErr := os.Getwd()
	if workingDirectoryErr != nil {
		t.Fatalf("get working directory: %v", workingDirectoryErr)
	}
	fileSystem := afero.NewMemMapFs()
	filePath := filepath.Join(workingDirectory, "proj", "a.txt")
	if mkdirErr := fileSystem.MkdirAll(filepath.Dir(filePath), 0o755); mkdirErr != nil {
		t.Fatalf("create directory: %v", mkdirErr)
	}
	if writeErr := afero.WriteFile(fileSystem, filePath, []byte("alpha\n"), 0o644); writeErr != nil {
		t.Fatalf("write file: %v", writeErr)
	}

	address, stop := startTestServer(t, fileSystem)
	defer stop()

	statusCode, response := postBundle(t, address, `{"root":"proj","paths":["a.txt"],"mode":"none","model":"approx"}`)
	if statusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", statusCode)
	}
	if response.Status != string(bundle.StatusOK) {
		t.Fatalf("expected bundle status %q, got %q (%s)", bundle.StatusOK, response.Status, response.Message)
	}
	if !strings.Contains(response.Output, `<file name="a.txt" path="/a.txt">`+"\nalpha\n") {
		t.Fatalf("expected a.txt in output:\n%s", response.Output)
	}
}

package main

import (
	"bytes"
	"os"
	"testing"

	"bridgeus/service"

	"github.com/stretchr/testify/assert"
)

func TestRealMain(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedExit   int
		expectedOutput string
		expectedError  string
	}{
		{
			name:           "no arguments",
			args:           nil,
			expectedExit:   0,
			expectedOutput: "Usage:",
		},
		{
			name:           "help command",
			args:           []string{"help"},
			expectedExit:   0,
			expectedOutput: "bridgeus [command]",
		},
		{
			name:           "version command",
			args:           []string{"version"},
			expectedExit:   0,
			expectedOutput: "bridgeus version " + service.Version,
		},
		{
			name:          "unknown command",
			args:          []string{"unknown"},
			expectedExit:  1,
			expectedError: `Error: unknown command "unknown"`,
		},
		{
			name:          "serve with extra arguments",
			args:          []string{"serve", "./static"},
			expectedExit:  1,
			expectedError: "Error: unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := RealMain(tt.args, &stdout, &stderr)

			assert.Equal(t, tt.expectedExit, code)
			assert.Contains(t, stdout.String(), tt.expectedOutput)
			assert.Contains(t, stderr.String(), tt.expectedError)
		})
	}
}

func TestMainExitCode(t *testing.T) {
	exitCode := -1
	oldExit := exit
	defer func() { exit = oldExit }()
	exit = func(code int) { exitCode = code }

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"bridgeus", "unknown"}

	main()
	assert.Equal(t, 1, exitCode)
}

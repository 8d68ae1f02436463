package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gardenDesignAi/internal/conversation"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{"", command{kind: cmdEmpty}},
		{"/quit", command{kind: cmdQuit}},
		{"/reset", command{kind: cmdReset}},
		{"/image giardino.jpg", command{kind: cmdImage, path: "giardino.jpg"}},
		{"/image giardino.jpg stile zen per favore", command{kind: cmdImage, path: "giardino.jpg", text: "stile zen per favore"}},
		{"  voglio una piscina ", command{kind: cmdMessage, text: "voglio una piscina"}},
		{"/imagery", command{kind: cmdMessage, text: "/imagery"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseCommand("/image")
	assert.Error(t, err)
}

func TestTerminalSavesRenders(t *testing.T) {
	var out bytes.Buffer
	term := &terminal{out: &out, outDir: t.TempDir()}

	img := conversation.Image{Data: []byte("png"), MIME: "image/png"}
	term.print("0123456789", []conversation.Reply{
		{Kind: conversation.ReplyImage, Text: "Ecco il rendering", Image: &img},
		{Kind: conversation.ReplyText, Text: "Cosa ne pensi?"},
	})

	path := filepath.Join(term.outDir, "garden-01234567-01.png")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Contains(t, out.String(), "Ecco il rendering")
	assert.Contains(t, out.String(), path)
	assert.Contains(t, out.String(), "Cosa ne pensi?")
}

func TestHashPasswordCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash-password", "giardino"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "$2a$")
}

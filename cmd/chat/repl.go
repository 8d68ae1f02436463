package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"gardenDesignAi/internal/app"
	"gardenDesignAi/internal/config"
	"gardenDesignAi/internal/conversation"
	"gardenDesignAi/internal/logging"
	"gardenDesignAi/internal/vision"
)

type replOptions struct {
	OutDir   string
	LogLevel string
}

type commandKind int

const (
	cmdMessage commandKind = iota
	cmdImage
	cmdReset
	cmdQuit
	cmdEmpty
)

type command struct {
	kind commandKind
	path string
	text string
}

func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return command{kind: cmdEmpty}, nil
	case line == "/quit" || line == "/exit":
		return command{kind: cmdQuit}, nil
	case line == "/reset":
		return command{kind: cmdReset}, nil
	case line == "/image" || strings.HasPrefix(line, "/image "):
		rest := strings.TrimSpace(strings.TrimPrefix(line, "/image"))
		if rest == "" {
			return command{}, fmt.Errorf("usage: /image <path> [text]")
		}
		path, text, _ := strings.Cut(rest, " ")
		return command{kind: cmdImage, path: path, text: strings.TrimSpace(text)}, nil
	default:
		return command{kind: cmdMessage, text: line}, nil
	}
}

// terminal renders replies and keeps a counter for saved images.
type terminal struct {
	out     io.Writer
	outDir  string
	renders int
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, opts replOptions) error {
	cfg, cfgErr := config.Load()
	if cfgErr != nil && !app.IsConfigError(cfgErr) {
		return cfgErr
	}
	logger, err := logging.New(opts.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt, err := app.New(ctx, cfg, cfgErr, logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	term := &terminal{out: out, outDir: opts.OutDir}

	session := rt.Store.Create()
	term.print(session.ID, rt.Engine.Start(ctx, session))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		var inbound conversation.Inbound
		switch cmd.kind {
		case cmdEmpty:
			continue
		case cmdQuit:
			rt.Store.Delete(session.ID)
			return nil
		case cmdReset:
			rt.Store.Delete(session.ID)
			session = rt.Store.Create()
			term.print(session.ID, rt.Engine.Start(ctx, session))
			continue
		case cmdImage:
			data, err := os.ReadFile(cmd.path)
			if err != nil {
				fmt.Fprintf(out, "cannot read %s: %v\n", cmd.path, err)
				continue
			}
			inbound = conversation.Inbound{Text: cmd.text, Attachments: []conversation.Attachment{{
				Name: filepath.Base(cmd.path),
				MIME: vision.DetectMIME(data, ""),
				Data: data,
			}}}
		default:
			inbound = conversation.Inbound{Text: cmd.text}
		}

		err = rt.Store.Do(ctx, session.ID, func(s *conversation.Session) error {
			term.print(s.ID, rt.Engine.Handle(ctx, s, inbound))
			return nil
		})
		if err != nil {
			logger.Error("turn failed", zap.String("session_id", session.ID), zap.Error(err))
			fmt.Fprintln(out, err)
		}
	}
	rt.Store.Delete(session.ID)
	return scanner.Err()
}

func (t *terminal) print(sessionID string, replies []conversation.Reply) {
	for _, reply := range replies {
		if reply.Text != "" {
			fmt.Fprintf(t.out, "\n%s\n", reply.Text)
		}
		if reply.Kind != conversation.ReplyImage || reply.Image == nil {
			continue
		}
		path, err := t.save(sessionID, *reply.Image)
		if err != nil {
			fmt.Fprintf(t.out, "cannot save render: %v\n", err)
			continue
		}
		fmt.Fprintf(t.out, "[render saved to %s]\n", path)
		if reply.ImageURL != "" {
			fmt.Fprintf(t.out, "[published at %s]\n", reply.ImageURL)
		}
	}
}

func (t *terminal) save(sessionID string, img conversation.Image) (string, error) {
	t.renders++
	ext := ".png"
	if img.MIME == "image/jpeg" {
		ext = ".jpg"
	}
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	path := filepath.Join(t.outDir, fmt.Sprintf("garden-%s-%02d%s", short, t.renders, ext))
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

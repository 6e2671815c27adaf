// Package main implements the replay tool, which republishes raw payloads,
// one per line, onto the event tracker's stream.
package main

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-tracker/internal/config"
	"github.com/capitalize-ai/event-tracker/internal/model"
	natsclient "github.com/capitalize-ai/event-tracker/internal/nats"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

const maxLineSize = 4 * 1024 * 1024

func main() {
	os.Exit(run())
}

func run() int {
	kind := flag.String("kind", model.RecordKindEvent, "record kind: "+model.RecordKindMessageDetail+" or "+model.RecordKindEvent)
	input := flag.String("file", "-", "newline-delimited payload file, - for stdin")
	dedupe := flag.Bool("dedupe", false, "derive the message id from each line so the stream drops re-runs within its duplicate window")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.NewForFormat(logger.Format(cfg.LogFormat), cfg.LogLevel, "event-replay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	if *kind != model.RecordKindMessageDetail && *kind != model.RecordKindEvent {
		log.Error("unknown record kind", zap.String("kind", *kind))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var r io.Reader = os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			log.Error("failed to open input", zap.Error(err))
			return 1
		}
		defer f.Close()
		r = f
	}

	client, err := natsclient.Connect(natsclient.Config{
		Name:     "event-tracker-replay",
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		return 1
	}
	defer client.Close()

	streamManager := natsclient.NewStreamManager(client, natsclient.StreamConfig{
		Name:          cfg.NATSStream,
		SubjectPrefix: cfg.NATSSubject,
	})

	published, err := replay(ctx, r, func(ctx context.Context, line []byte) error {
		key := ""
		if *dedupe {
			key = dedupeKey(*kind, line)
		}
		_, err := streamManager.Publish(ctx, *kind, key, line)
		return err
	})
	log.Info("replay finished", zap.Int("published", published), zap.String("kind", *kind))
	if err != nil {
		log.Error("replay failed", zap.Error(err))
		return 1
	}
	return 0
}

// dedupeKey is stable for a given kind and line, so publishing the same file
// twice yields the same message ids.
func dedupeKey(kind string, line []byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{'\n'})
	h.Write(line)
	return hex.EncodeToString(h.Sum(nil))
}

// replay calls publish for every non-blank line of r and returns how many succeeded.
func replay(ctx context.Context, r io.Reader, publish func(context.Context, []byte) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	published := 0
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		payload := append([]byte(nil), line...)
		if err := publish(ctx, payload); err != nil {
			return published, fmt.Errorf("line %d: %w", lineNo, err)
		}
		published++
	}
	return published, scanner.Err()
}

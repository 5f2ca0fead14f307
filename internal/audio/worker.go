package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/starford/quest/internal/apperr"
)

// ReplyKind identifies the outcome of one decode request.
type ReplyKind int

const (
	DecodeSuccess ReplyKind = iota
	DecodeError
)

// ErrWorkerClosed is returned by Decode after Close.
var ErrWorkerClosed = errors.New("audio: decode worker closed")

type decodeReq struct {
	base64   string
	mimeType string
	reply    chan decodeReply
}

type decodeReply struct {
	kind     ReplyKind
	data     []byte
	mimeType string
	err      string
}

// Worker decodes base64 audio off the caller's goroutine. Raw PCM is wrapped
// in a WAV container; anything else is passed through as audio/mpeg.
type Worker struct {
	logger *slog.Logger
	reqCh  chan decodeReq
	stopCh chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
	once   sync.Once
}

// NewWorker starts n decode goroutines. n below one starts one.
func NewWorker(n int, logger *slog.Logger) *Worker {
	if n < 1 {
		n = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		logger: logger,
		reqCh:  make(chan decodeReq),
		stopCh: make(chan struct{}),
	}
	w.wg.Add(n)
	for range n {
		go w.loop()
	}
	return w
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case req := <-w.reqCh:
			req.reply <- decode(req.base64, req.mimeType)
		}
	}
}

func decode(b64, mimeType string) decodeReply {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return decodeReply{kind: DecodeError, err: err.Error()}
	}
	if IsPCM(mimeType) {
		return decodeReply{kind: DecodeSuccess, data: PCMToWAV(raw, PCMRate(mimeType), 1, 16), mimeType: MIMEWAV}
	}
	return decodeReply{kind: DecodeSuccess, data: raw, mimeType: MIMEMPEG}
}

// Decode submits one payload and waits for its reply. Failures are reported
// as *apperr.DecodeError and are not retried.
func (w *Worker) Decode(ctx context.Context, b64, mimeType string) ([]byte, string, error) {
	if w.closed.Load() {
		return nil, "", ErrWorkerClosed
	}
	req := decodeReq{base64: b64, mimeType: mimeType, reply: make(chan decodeReply, 1)}
	select {
	case w.reqCh <- req:
	case <-w.stopCh:
		return nil, "", ErrWorkerClosed
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}

	select {
	case rep := <-req.reply:
		if rep.kind == DecodeError {
			w.logger.Warn("audio decode failed", "mime_type", mimeType, "error", rep.err)
			return nil, "", &apperr.DecodeError{Message: "Worker failed: " + rep.err}
		}
		if rep.mimeType == MIMEMPEG && !LooksLikeMP3(rep.data) {
			w.logger.Warn("decoded audio does not look like mp3", "mime_type", mimeType, "size", len(rep.data))
		}
		return rep.data, rep.mimeType, nil
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

// Close stops the decode goroutines and waits for them to exit. In-flight
// requests complete first.
func (w *Worker) Close() {
	w.once.Do(func() {
		w.closed.Store(true)
		close(w.stopCh)
		w.wg.Wait()
	})
}

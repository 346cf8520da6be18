package stdio

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/walteh/previewrc/pkg/preview"
	"github.com/walteh/previewrc/pkg/session"
	"gitlab.com/tozd/go/errors"
)

// 🛰️ Server dispatches inbound messages to the preview components
type Server struct {
	host       *Host
	controller *session.Controller
	provider   *preview.ContentProvider
	hook       *preview.LifecycleHook
}

// NewServer creates a server replying through host
func NewServer(host *Host, controller *session.Controller, provider *preview.ContentProvider, hook *preview.LifecycleHook) *Server {
	return &Server{
		host:       host,
		controller: controller,
		provider:   provider,
		hook:       hook,
	}
}

// Serve reads messages from r until EOF, then waits for running requests.
// Preview and open requests run concurrently; the rest are handled in order.
func (s *Server) Serve(ctx context.Context, r io.Reader) error {
	logger := zerolog.Ctx(ctx)
	reader := bufio.NewReader(r)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("serving cancelled: %w", err)
		}

		line, readErr := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			if err := s.handle(ctx, &wg, line); err != nil {
				logger.Warn().Err(err).Msg("handling message")
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return errors.Errorf("reading messages: %w", readErr)
		}
	}
}

func (s *Server) handle(ctx context.Context, wg *sync.WaitGroup, line []byte) error {
	if !gjson.ValidBytes(line) {
		return errors.Errorf("invalid json: %.80q", line)
	}
	msg := gjson.ParseBytes(line)
	id := msg.Get("id")
	typ := msg.Get("type").String()

	zerolog.Ctx(ctx).Debug().Str("type", typ).Str("id", id.String()).Msg("received message")

	switch typ {
	case TypePreviewDiff:
		req := session.Request{
			FilePath:  msg.Get("filePath").String(),
			Pattern:   msg.Get("inputValue").String(),
			Rewrite:   msg.Get("rewrite").String(),
			Lang:      msg.Get("lang").String(),
			Selection: parseRange(msg.Get("locationsToSelect")),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := s.controller.PreviewDiff(ctx, req)
			state := session.StateIdle
			if sess != nil {
				state = sess.State
			}
			s.reply(ctx, id, newMessage().set("type", TypeDone).set("state", state.String()), err)
		}()
		return nil

	case TypeOpenFile:
		req := session.OpenFileRequest{
			FilePath:  msg.Get("filePath").String(),
			Selection: parseRange(msg.Get("locationsToSelect")),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.controller.OpenFile(ctx, req)
			s.reply(ctx, id, newMessage().set("type", TypeDone).set("state", session.StateIdle.String()), err)
		}()
		return nil

	case TypeProvideContent:
		uri, err := preview.ParseURI(msg.Get("uri").String())
		if err != nil {
			s.reply(ctx, id, newMessage().set("type", TypeError), err)
			return nil
		}
		s.reply(ctx, id, newMessage().set("type", TypeContent).set("content", s.provider.ProvideContent(ctx, uri)), nil)
		return nil

	case TypeDidClose:
		uri, err := preview.ParseURI(msg.Get("uri").String())
		if err != nil {
			return errors.Errorf("parsing closed document uri: %w", err)
		}
		s.hook.DidClose(ctx, uri)
		return nil

	default:
		err := errors.Errorf("unknown message type %q", typ)
		s.reply(ctx, id, newMessage().set("type", TypeError), err)
		return err
	}
}

// reply answers a request; requests without an id get no reply
func (s *Server) reply(ctx context.Context, id gjson.Result, m *message, err error) {
	if !id.Exists() {
		return
	}
	m.setRaw("id", id)
	if err != nil {
		m.set("error", err.Error())
	}
	if sendErr := s.host.send(m); sendErr != nil {
		zerolog.Ctx(ctx).Warn().Err(sendErr).Msg("sending reply")
	}
}

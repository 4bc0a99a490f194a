package pictures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/avogel/chase-bridge/internal/engine"
)

// MaxEnvelopeBytes bounds one upload connection's total read. Slightly more
// than a picture to leave room for the envelope and base64 overhead.
const MaxEnvelopeBytes = 12 << 20

type KindType string

const (
	KindTeamProfile   KindType = "TeamProfile"
	KindPlayerProfile KindType = "PlayerProfile"
	KindPeriod        KindType = "Period"
)

// Kind says what a picture upload is for.
type Kind struct {
	Type    KindType `json:"type"`
	Session uint64   `json:"session,omitempty"` // TeamProfile, Period
	Team    int      `json:"team,omitempty"`    // TeamProfile, Period
	Player  uint64   `json:"player,omitempty"`  // PlayerProfile
	Period  int      `json:"period,omitempty"`  // Period
}

// Envelope is the single JSON document an ingestion connection carries,
// terminated by the sender closing its write side.
type Envelope struct {
	Kind    Kind   `json:"kind"`
	Picture []byte `json:"picture"`
}

// Server accepts one-shot picture uploads and forwards them to the engine.
// There is no correlation with any client session and no retry; a bad upload
// just ends that one connection.
type Server struct {
	EngineAddr string
	Log        *zap.Logger

	// send is swappable for tests; defaults to engine.SendOnce.
	send func(ctx context.Context, addr string, cmd engine.Command) (engine.Response, error)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.send == nil {
		s.send = engine.SendOnce
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	log := s.Log.With(zap.String("remote_addr", conn.RemoteAddr().String()))

	data, err := io.ReadAll(io.LimitReader(conn, MaxEnvelopeBytes+1))
	if err != nil {
		log.Warn("upload read failed", zap.Error(err))
		return
	}
	if len(data) > MaxEnvelopeBytes {
		log.Warn("upload exceeds size bound", zap.Int("bytes", len(data)))
		return
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn("undecodable upload envelope", zap.Error(err))
		return
	}
	if err := Validate(env.Picture); err != nil {
		log.Warn("rejecting upload", zap.String("kind", string(env.Kind.Type)), zap.Error(err))
		return
	}

	cmd, err := commandForEnvelope(env)
	if err != nil {
		log.Warn("rejecting upload", zap.Error(err))
		return
	}

	resp, err := s.send(ctx, s.EngineAddr, cmd)
	switch {
	case err != nil:
		log.Warn("engine upload failed", zap.String("kind", string(env.Kind.Type)), zap.Error(err))
	case resp.Type == engine.RespError && resp.Err != nil:
		log.Warn("engine rejected upload",
			zap.String("kind", string(env.Kind.Type)),
			zap.String("error", string(resp.Err.Kind)))
	default:
		log.Info("picture forwarded",
			zap.String("kind", string(env.Kind.Type)),
			zap.Int("bytes", len(env.Picture)))
	}
}

// commandForEnvelope maps an upload envelope to its engine command.
func commandForEnvelope(env Envelope) (engine.Command, error) {
	switch env.Kind.Type {
	case KindTeamProfile:
		session := env.Kind.Session
		return engine.Command{
			Session: &session,
			Action: engine.Action{
				Type:    engine.ActUploadTeamPicture,
				Team:    env.Kind.Team,
				Picture: env.Picture,
			},
		}, nil

	case KindPlayerProfile:
		return engine.Command{
			Action: engine.Action{
				Type:    engine.ActUploadPlayerPicture,
				Player:  env.Kind.Player,
				Picture: env.Picture,
			},
		}, nil

	case KindPeriod:
		session := env.Kind.Session
		return engine.Command{
			Session: &session,
			Action: engine.Action{
				Type:     engine.ActAttachPeriodPictures,
				Team:     env.Kind.Team,
				Period:   env.Kind.Period,
				Pictures: [][]byte{env.Picture},
			},
		}, nil

	default:
		return engine.Command{}, fmt.Errorf("unknown picture kind %q", env.Kind.Type)
	}
}

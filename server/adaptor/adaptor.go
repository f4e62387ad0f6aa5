package adaptor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ponyo877/callwatch/callpb"
	"github.com/ponyo877/callwatch/server/domain"
)

// Adaptor serves callpb.CallService on top of the session coordinator.
type Adaptor struct {
	sessions Sessions
}

func NewAdaptor(sessions Sessions) *Adaptor {
	return &Adaptor{sessions: sessions}
}

var _ callpb.CallServiceServer = (*Adaptor)(nil)

func toEnvelope(m *structpb.Struct) (domain.Envelope, error) {
	event, data, err := callpb.ParseMessage(m)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return domain.Envelope{Event: event, Data: data}, nil
}

func fromEnvelope(env domain.Envelope) (*structpb.Struct, error) {
	return callpb.NewMessage(env.Event, env.Data)
}

// Connect runs one client stream. Identity comes from the call metadata; the
// stream is refused with Unauthenticated when user-id is missing.
func (a *Adaptor) Connect(stream callpb.CallService_ConnectServer) error {
	ctx := stream.Context()
	profile := profileFromMetadata(ctx)
	if !profile.IsValid() {
		return status.Error(codes.Unauthenticated, "user-id metadata is required")
	}

	remote := ""
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		remote = p.Addr.String()
	}
	conn := a.sessions.NewConnection(remote)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	requestChan := make(chan domain.Envelope, 32)
	go func() {
		defer close(requestChan)
		for {
			in, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					log.Debug().Str("module", "adaptor.grpc").Str("conn", conn.ID).Msg("client closed the stream")
				} else if status.Code(err) != codes.Canceled {
					log.Debug().Str("module", "adaptor.grpc").Str("conn", conn.ID).Err(err).Msg("receive failed")
				}
				return
			}
			env, err := toEnvelope(in)
			if err != nil {
				log.Debug().Str("module", "adaptor.grpc").Str("conn", conn.ID).Err(err).Msg("failed to convert request")
				continue
			}
			select {
			case requestChan <- env:
			case <-ctx.Done():
				return
			}
		}
	}()

	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		for env := range conn.Outbound() {
			msg, err := fromEnvelope(env)
			if err != nil {
				log.Error().Str("module", "adaptor.grpc").Str("event", env.Event).Err(err).Msg("failed to convert response")
				continue
			}
			if err := stream.Send(msg); err != nil {
				log.Debug().Str("module", "adaptor.grpc").Str("conn", conn.ID).Err(err).Msg("send failed")
				cancel()
				return
			}
		}
	}()

	err := a.sessions.Serve(ctx, conn, profile, requestChan)
	<-sendDone
	if errors.Is(err, domain.ErrNotIdentified) {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return nil
}

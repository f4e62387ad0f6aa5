package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/viper"
	"google.golang.org/grpc/metadata"

	"github.com/ponyo877/callwatch/callpb"
	"github.com/ponyo877/callwatch/server/domain"
)

var errNoUserID = errors.New("user id is not set; use --user-id or CALLWATCH_USER_ID")

func currentProfile() (domain.Profile, error) {
	p := domain.Profile{
		UserID: viper.GetString(userIDKey),
		Name:   viper.GetString(userNameKey),
		Image:  viper.GetString(userImageKey),
		Role:   domain.Role(viper.GetString(roleKey)),
	}
	if !p.IsValid() {
		return domain.Profile{}, errNoUserID
	}
	return p, nil
}

// session is one Connect stream. Send is safe for concurrent use; Recv must
// be called from a single goroutine.
type session struct {
	stream callpb.CallService_ConnectClient
	cancel context.CancelFunc
	mu     sync.Mutex
}

func openSession(ctx context.Context, profile domain.Profile) (*session, error) {
	ctx, cancel := context.WithCancel(ctx)
	pairs := []string{callpb.MetadataUserID, profile.UserID}
	if profile.Name != "" {
		pairs = append(pairs, callpb.MetadataUserName, profile.Name)
	}
	if profile.Image != "" {
		pairs = append(pairs, callpb.MetadataUserImage, profile.Image)
	}
	if profile.Role != "" {
		pairs = append(pairs, callpb.MetadataRole, profile.Role.String())
	}
	ctx = metadata.AppendToOutgoingContext(ctx, pairs...)

	stream, err := callClient.Connect(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	return &session{stream: stream, cancel: cancel}, nil
}

func (s *session) Send(event string, payload any) error {
	env, err := domain.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	msg, err := callpb.NewMessage(env.Event, env.Data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.Send(msg)
}

func (s *session) Recv() (domain.Envelope, error) {
	msg, err := s.stream.Recv()
	if err != nil {
		return domain.Envelope{}, err
	}
	event, data, err := callpb.ParseMessage(msg)
	if err != nil {
		return domain.Envelope{}, err
	}
	return domain.Envelope{Event: event, Data: data}, nil
}

func (s *session) Join(callID string) error {
	return s.Send(domain.EventJoinCall, callID)
}

func (s *session) Close() {
	s.mu.Lock()
	_ = s.stream.CloseSend()
	s.mu.Unlock()
	s.cancel()
}

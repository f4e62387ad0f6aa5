package adaptor

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ponyo877/callwatch/callpb"
	"github.com/ponyo877/callwatch/server/domain"
	"github.com/ponyo877/callwatch/server/usecase"
)

func newGRPCClient(t *testing.T, sessions Sessions) callpb.CallServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	callpb.RegisterCallServiceServer(s, NewAdaptor(sessions))
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })
	return callpb.NewCallServiceClient(cc)
}

func connectAs(t *testing.T, client callpb.CallServiceClient, userID, name, role string) callpb.CallService_ConnectClient {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ctx = metadata.AppendToOutgoingContext(ctx,
		callpb.MetadataUserID, userID,
		callpb.MetadataUserName, name,
		callpb.MetadataRole, role,
	)
	stream, err := client.Connect(ctx)
	require.NoError(t, err)
	return stream
}

func sendEvent(t *testing.T, stream callpb.CallService_ConnectClient, event string, payload any) {
	t.Helper()
	env, err := domain.NewEnvelope(event, payload)
	require.NoError(t, err)
	msg, err := callpb.NewMessage(env.Event, env.Data)
	require.NoError(t, err)
	require.NoError(t, stream.Send(msg))
}

// recvUntil reads envelopes until one named event arrives.
func recvUntil(t *testing.T, stream callpb.CallService_ConnectClient, event string) json.RawMessage {
	t.Helper()
	deadline := time.After(5 * time.Second)
	got := make(chan json.RawMessage, 1)
	go func() {
		for {
			msg, err := stream.Recv()
			if err != nil {
				close(got)
				return
			}
			name, data, err := callpb.ParseMessage(msg)
			if err == nil && name == event {
				got <- data
				return
			}
		}
	}()
	select {
	case data, ok := <-got:
		require.True(t, ok, "stream ended before %s", event)
		return data
	case <-deadline:
		t.Fatalf("timed out waiting for %s", event)
		return nil
	}
}

func TestConnectEndToEnd(t *testing.T) {
	sessions := usecase.NewSessionCoordinator(usecase.Options{})
	client := newGRPCClient(t, sessions)

	teacher := connectAs(t, client, "T", "Teacher", "teacher")
	recvUntil(t, teacher, domain.EventOnlineUsers)
	sendEvent(t, teacher, domain.EventJoinCall, "r1")
	recvUntil(t, teacher, domain.EventPeerStatusUpdate)

	student := connectAs(t, client, "S", "Sam", "")
	sendEvent(t, student, domain.EventJoinCall, domain.RoomPayload{RoomID: "r1"})

	var system domain.SystemPayload
	require.NoError(t, json.Unmarshal(recvUntil(t, teacher, domain.EventChatSystem), &system))
	assert.Equal(t, "Sam joined the call", system.Message)
	recvUntil(t, teacher, domain.EventPeerStatusUpdate)

	sendEvent(t, student, domain.EventMonitoring, map[string]string{
		"callId":    "r1",
		"studentId": "S",
		"eventType": "tab_switch",
		"details":   "Switched Tab",
	})
	var update domain.MonitoringPayload
	require.NoError(t, json.Unmarshal(recvUntil(t, teacher, domain.EventMonitoringUpdate), &update))
	assert.Equal(t, "S", update.UserID)
	assert.Equal(t, domain.KindTabSwitch, update.Kind)

	var peer domain.PeerStatusPayload
	require.NoError(t, json.Unmarshal(recvUntil(t, teacher, domain.EventPeerStatusUpdate), &peer))
	assert.Equal(t, domain.StatusDistracted, peer.Status)
	assert.Equal(t, "Switched Tab", peer.LastActivity)

	require.NoError(t, student.CloseSend())
	var left domain.PeerLeftPayload
	require.NoError(t, json.Unmarshal(recvUntil(t, teacher, domain.EventPeerLeft), &left))
	assert.Equal(t, "S", left.UserID)

	assert.Eventually(t, func() bool {
		return len(sessions.Snapshot("r1").Roster) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectRequiresIdentity(t *testing.T) {
	client := newGRPCClient(t, usecase.NewSessionCoordinator(usecase.Options{}))

	stream, err := client.Connect(context.Background())
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

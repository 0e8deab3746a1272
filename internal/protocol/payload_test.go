package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wyrm/internal/cmdqueue"
	"wyrm/internal/fixed"
	"wyrm/internal/snake"
)

func TestJoinRequestRoundTrip(t *testing.T) {
	in := JoinRequestPayload{ProtocolVersion: 3, Username: "test", Frame: 0}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeJoinRequest(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestJoinRequestRejectsNonUTF8Username(t *testing.T) {
	buf := []byte{3, 2, 0xff, 0xfe, 0, 0}
	_, err := DecodeJoinRequest(buf)
	require.ErrorIs(t, err, ErrInvalidMessage)
}

func TestJoinAcceptRoundTrip(t *testing.T) {
	in := JoinAcceptPayload{
		SimTickRate: 60, NetTickRate: 20,
		ClientFrame: 0, ServerFrame: 32, SnakeID: 1,
		Spawn: fixed.QWPos{X: fixed.MakeQW(0), Y: fixed.MakeQW(0)},
	}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeJoinAccept(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestJoinDenyRoundTrip(t *testing.T) {
	in := JoinDenyPayload{Error: "server full"}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeJoinDeny(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestCommandsRoundTrip(t *testing.T) {
	in := CommandsPayload{
		LastFrame: 35,
		Cmds: []cmdqueue.Command{
			{Angle: 1, Speed: 2, Action: cmdqueue.ActionBoost},
			{Angle: 3, Speed: 4, Action: cmdqueue.ActionNone},
		},
	}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeCommands(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestFeedbackRoundTrip(t *testing.T) {
	in := FeedbackPayload{Diff: -4, Frame: 35}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeFeedback(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSnakeHeadRoundTrip(t *testing.T) {
	in := SnakeHeadPayload{
		Frame: 100, SnakeID: 7,
		Head: snake.Handle{Pos: fixed.QWPos{X: fixed.MakeQW(3), Y: fixed.MakeQW(-2)}, Angle: 42, LenForwards: 1, LenBackwards: 2},
	}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeSnakeHead(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSnakeBezierRoundTrip(t *testing.T) {
	in := SnakeBezierPayload{
		SnakeID: 2, Frame: 50,
		Handle: snake.Handle{Pos: fixed.QWPos{X: fixed.MakeQW(1)}, Angle: 9},
	}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeSnakeBezier(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSnakeBezierAckRoundTrip(t *testing.T) {
	in := SnakeBezierAckPayload{SnakeID: 2, Frame: 50}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeSnakeBezierAck(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSnakeMetadataRoundTrip(t *testing.T) {
	in := SnakeMetadataPayload{SnakeID: 5, Username: "alice", Upgrades: 3}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeSnakeMetadata(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestFoodCreateRoundTrip(t *testing.T) {
	in := FoodCreatePayload{
		ClusterIndex: 4,
		Food: []fixed.QWPos{
			{X: fixed.MakeQW(1), Y: fixed.MakeQW(2)},
			{X: fixed.MakeQW(3), Y: fixed.MakeQW(4)},
		},
	}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeFoodCreate(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestFoodDestroyRoundTrip(t *testing.T) {
	in := FoodDestroyPayload{ClusterIndex: 9, Indices: []uint8{1, 3, 5}}
	enc, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeFoodDestroy(enc)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeTruncatedPayloadIsInvalidMessage(t *testing.T) {
	_, err := DecodeJoinAccept([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidMessage)
}

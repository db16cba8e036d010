package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"sentinel/infrastructure/persistence/dynamodb"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockConnectionStore struct {
	mock.Mock
}

func (m *mockConnectionStore) ForUser(ctx context.Context, userID string) ([]dynamodb.Connection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dynamodb.Connection), args.Error(1)
}

func (m *mockConnectionStore) Delete(ctx context.Context, connectionID string) error {
	return m.Called(ctx, connectionID).Error(0)
}

type recordingPoster struct {
	mu    sync.Mutex
	posts map[string][]byte
	fail  map[string]error
}

func (p *recordingPoster) PostToConnection(_ context.Context, params *apigatewaymanagementapi.PostToConnectionInput, _ ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	id := aws.ToString(params.ConnectionId)
	if err := p.fail[id]; err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts[id] = params.Data
	return &apigatewaymanagementapi.PostToConnectionOutput{}, nil
}

func TestRelay_Deliver(t *testing.T) {
	store := new(mockConnectionStore)
	store.On("ForUser", mock.Anything, "u1").Return([]dynamodb.Connection{
		{ConnectionID: "a", UserID: "u1"},
		{ConnectionID: "b", UserID: "u1"},
		{ConnectionID: "c", UserID: "u1"},
	}, nil)
	store.On("Delete", mock.Anything, "b").Return(nil)

	poster := &recordingPoster{
		posts: map[string][]byte{},
		fail: map[string]error{
			"b": &apigwtypes.GoneException{Message: aws.String("gone")},
			"c": errors.New("throttled"),
		},
	}

	relay := NewRelay(store, poster, zap.NewNop())
	relay.now = func() time.Time { return time.Unix(1700000000, 0) }

	sent, err := relay.Deliver(context.Background(), "u1", TypeEvent, map[string]string{"event_type": "countdown.armed"})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	store.AssertCalled(t, "Delete", mock.Anything, "b")
	store.AssertNotCalled(t, "Delete", mock.Anything, "c")

	var msg BroadcastMessage
	require.NoError(t, json.Unmarshal(poster.posts["a"], &msg))
	assert.Equal(t, TypeEvent, msg.Type)
	assert.Equal(t, int64(1700000000), msg.Timestamp)
	assert.JSONEq(t, `{"event_type":"countdown.armed"}`, string(msg.Data))
}

func TestRelay_DeliverStoreError(t *testing.T) {
	store := new(mockConnectionStore)
	store.On("ForUser", mock.Anything, "u1").Return(nil, errors.New("unavailable"))

	sent, err := NewRelay(store, &recordingPoster{}, zap.NewNop()).
		Deliver(context.Background(), "u1", TypeEvent, struct{}{})
	assert.Error(t, err)
	assert.Zero(t, sent)
}

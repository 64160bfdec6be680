package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/greencoach/greencoach-service/internal/models"
)

var (
	_ Publisher = Noop{}
	_ Publisher = (*AMQPPublisher)(nil)
	_ Publisher = (*MockPublisher)(nil)
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func sampleNotification() *models.Notification {
	postID := int64(7)
	return &models.Notification{
		ID:          3,
		RecipientID: uuid.MustParse("6f1c1b52-2f8f-4a53-9d36-2a5d1d0b7a11"),
		Type:        models.NotificationLike,
		ActorID:     "actor-1",
		PostID:      &postID,
		CreatedAt:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestFromNotification(t *testing.T) {
	e := FromNotification(sampleNotification())

	assert.Equal(t, models.NotificationLike, e.Type)
	assert.EqualValues(t, 3, e.NotificationID)
	assert.Equal(t, "6f1c1b52-2f8f-4a53-9d36-2a5d1d0b7a11", e.RecipientID)
	assert.Equal(t, "actor-1", e.ActorID)
	require.NotNil(t, e.PostID)
	assert.EqualValues(t, 7, *e.PostID)
	assert.Nil(t, e.CommentID)
	assert.Equal(t, "community.like", e.RoutingKey())
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "community.reply", CommunityEvent{Type: models.NotificationReply}.RoutingKey())
	assert.Equal(t, "community.system", CommunityEvent{Type: models.NotificationSystem}.RoutingKey())
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{exchange: "greencoach.community", ch: ch}

	require.NoError(t, p.Publish(context.Background(), FromNotification(sampleNotification())))

	assert.Equal(t, "greencoach.community", ch.exchange)
	assert.Equal(t, "community.like", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "LIKE", ch.msg.Type)

	var body map[string]any
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, "LIKE", body["type"])
	assert.EqualValues(t, 7, body["postId"])
	assert.NotContains(t, body, "commentId")

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	p := &AMQPPublisher{exchange: "x", ch: &fakeChannel{err: errors.New("channel closed")}}

	err := p.Publish(context.Background(), CommunityEvent{Type: models.NotificationComment})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq publish")
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	m.Err = errors.New("broker down")

	err := m.Publish(context.Background(), CommunityEvent{Type: models.NotificationFollow})
	assert.EqualError(t, err, "broker down")
	require.Len(t, m.Events(), 1)
	assert.Equal(t, models.NotificationFollow, m.Events()[0].Type)
}

func TestAMQPPublisher_Broker(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "5672/tcp", "")
	require.NoError(t, err)
	url := fmt.Sprintf("amqp://guest:guest@%s/", endpoint)

	pub, err := NewAMQPPublisher(url, "greencoach.community")
	require.NoError(t, err)
	defer pub.Close()

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "community.*", "greencoach.community", false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, FromNotification(sampleNotification())))

	select {
	case d := <-deliveries:
		assert.Equal(t, "community.like", d.RoutingKey)
		var got CommunityEvent
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.EqualValues(t, 3, got.NotificationID)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

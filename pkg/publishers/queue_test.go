package publishers

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	return &sns.PublishOutput{MessageId: aws.String("n-1")}, nil
}

func TestQueuePublisherSQS(t *testing.T) {
	client := &fakeSQS{}
	pub := &queuePublisher{
		id:       "archive",
		provider: QueueProviderAWSSQS,
		sender:   &awsSQSSender{queueURL: "https://sqs.example/q", client: client, log: ensureLogger(nil)},
		log:      ensureLogger(nil),
	}

	payload := Payload{Body: []byte(`{"articles":[]}`), Articles: 0, Checkpoint: true}
	if err := pub.Publish(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(client.input.MessageBody) != `{"articles":[]}` {
		t.Errorf("Expected document body, got: %q", aws.ToString(client.input.MessageBody))
	}
	if aws.ToString(client.input.QueueUrl) != "https://sqs.example/q" {
		t.Errorf("Unexpected queue url: %q", aws.ToString(client.input.QueueUrl))
	}
	if got := aws.ToString(client.input.MessageAttributes["document_kind"].StringValue); got != "checkpoint" {
		t.Errorf("Expected checkpoint kind, got: %q", got)
	}

	client.err = errors.New("throttled")
	if err := pub.Publish(context.Background(), payload); err == nil {
		t.Errorf("Expected send error")
	}
}

func TestQueuePublisherSNS(t *testing.T) {
	client := &fakeSNS{}
	sender := &awsSNSSender{topicARN: "arn:aws:sns:eu-central-1:123:blog", client: client, log: ensureLogger(nil)}

	if err := sender.Send(context.Background(), Payload{Body: []byte("doc"), Articles: 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(client.input.Message) != "doc" {
		t.Errorf("Expected raw document message, got: %q", aws.ToString(client.input.Message))
	}
	if got := aws.ToString(client.input.MessageAttributes["articles"].StringValue); got != "60" {
		t.Errorf("Expected article count attribute, got: %q", got)
	}
}

func TestQueuePublisherGCP(t *testing.T) {
	srv := pstest.NewServer()
	defer srv.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", srv.Addr)

	ctx := context.Background()
	admin, err := pubsub.NewClient(ctx, "blog")
	if err != nil {
		t.Fatalf("admin client: %v", err)
	}
	defer admin.Close()
	if _, err := admin.CreateTopic(ctx, "documents"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	pub, err := newQueuePublisher(ctx, PublisherConfig{
		ID:    "pubsub",
		Type:  TypeQueue,
		Queue: &QueuePublisherConfig{Provider: QueueProviderGCP, GCP: &GCPQueueConfig{ProjectID: "blog", Topic: "documents"}},
	}, nil)
	if err != nil {
		t.Fatalf("build publisher: %v", err)
	}

	sink, _ := NewSink([]Destination{{Publisher: pub}}, nil)
	defer sink.Close()

	if _, err := sink.Publish(ctx, sampleDocument()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs := srv.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got: %d", len(msgs))
	}
	want, _ := Encode(sampleDocument())
	if string(msgs[0].Data) != string(want) {
		t.Errorf("Expected encoded document as message data")
	}
	if msgs[0].Attributes["articles"] != "1" || msgs[0].Attributes["document_kind"] != "final" {
		t.Errorf("Unexpected attributes: %v", msgs[0].Attributes)
	}
}

func TestQueuePublisherUnsupportedProvider(t *testing.T) {
	_, err := newQueuePublisher(context.Background(), PublisherConfig{
		ID:    "x",
		Type:  TypeQueue,
		Queue: &QueuePublisherConfig{Provider: QueueProviderAzure},
	}, nil)
	if err == nil {
		t.Errorf("Expected azure to be rejected")
	}
}

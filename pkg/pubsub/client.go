package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub queue topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client wraps a Pub/Sub v2 client bound to one project.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects and fails fast when the queue topic, or the
// subscription if one is configured, is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.QueueTopic) == "" {
		return nil, errTopicRequired
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, projectID: projectID, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topic":   cfg.QueueTopic,
			"ordered": cfg.OrderedDelivery,
		}), "pubsub client initialized")
	}
	return c, nil
}

// Publisher returns a new publisher for a topic id or full resource name.
// With ordered delivery on, messages sharing an ordering key arrive in
// publish order; a failed publish pauses that key until ResumePublish.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	topic := TopicResourceName(c.projectID, name)
	if topic == "" {
		return nil
	}
	p := c.client.Publisher(topic)
	p.EnableMessageOrdering = c.cfg.OrderedDelivery
	return p
}

// Ping checks the configured topic and subscription still exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	err := c.exists(ctx, "topic", TopicResourceName(c.projectID, c.cfg.QueueTopic), func(ctx context.Context, name string) error {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		return err
	})
	if err != nil || strings.TrimSpace(c.cfg.QueueSubscription) == "" {
		return err
	}
	return c.exists(ctx, "subscription", SubscriptionResourceName(c.projectID, c.cfg.QueueSubscription), func(ctx context.Context, name string) error {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
		return err
	})
}

func (c *Client) exists(ctx context.Context, kind, name string, get func(context.Context, string) error) error {
	if name == "" {
		return fmt.Errorf("%s not configured", kind)
	}
	err := get(ctx, name)
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// SubscriptionResourceName expands a subscription id into its full resource name.
func SubscriptionResourceName(projectID, name string) string {
	return resourceName(projectID, "subscriptions", name)
}

// TopicResourceName expands a topic id into its full resource name.
func TopicResourceName(projectID, name string) string {
	return resourceName(projectID, "topics", name)
}

func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}

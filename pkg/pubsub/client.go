package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Needs lists the Pub/Sub resources a process cannot run without. They are
// checked at startup and on every readiness probe.
type Needs struct {
	Subscriptions []string
	Topics        []string
}

// ConsumerNeeds covers the ingestion worker.
func ConsumerNeeds(cfg config.PubSubConfig) Needs {
	return Needs{Subscriptions: compact(cfg.SettlementSubscription)}
}

// PublisherNeeds covers the outbox publisher, given the topics its event
// registry routes to.
func PublisherNeeds(topics ...string) Needs {
	return Needs{Topics: compact(topics...)}
}

func (n Needs) empty() bool {
	return len(n.Subscriptions) == 0 && len(n.Topics) == 0
}

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	needs     Needs
}

// NewClient opens a Pub/Sub v2 client and fails if any of needs is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, needs Needs, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if needs.empty() {
		return nil, errors.New("pubsub client needs at least one topic or subscription")
	}

	psClient, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, projectID: projectID, cfg: cfg, needs: needs}

	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"subscriptions": needs.Subscriptions,
			"topics":        needs.Topics,
		})
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

// Ping confirms every required topic and subscription still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	for _, name := range c.needs.Subscriptions {
		full := resourceName(c.projectID, "subscriptions", name)
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
		if err := lookupError("subscription", name, err); err != nil {
			return err
		}
	}
	for _, name := range c.needs.Topics {
		full := resourceName(c.projectID, "topics", name)
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		if err := lookupError("topic", name, err); err != nil {
			return err
		}
	}
	return nil
}

// clientOptions prefers inline credentials, then a credentials file, then
// application default credentials.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	default:
		return nil
	}
}

func lookupError(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Subscription accepts a bare ID or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, "subscriptions", name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// SettlementSubscription delivers order paid events to ingestion.
func (c *Client) SettlementSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.SettlementSubscription)
}

// Publisher accepts a bare ID or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, "topics", name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands id to projects/<project>/<collection>/<id>. Names
// that are already fully qualified pass through.
func resourceName(projectID, collection, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+collection+"/") {
		return id
	}
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + collection + "/" + id
}

func compact(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealerworks/dms-backend/pkg/config"
)

func TestTopicNamesDedupesAndSkipsBlank(t *testing.T) {
	names := TopicNames(config.PubSubConfig{
		DomainTopic:    "dms-domain-events",
		InventoryTopic: " dms-domain-events ",
		LoyaltyTopic:   "dms-loyalty-events",
	})
	assert.Equal(t, []string{"dms-domain-events", "dms-loyalty-events"}, names)
	assert.Empty(t, TopicNames(config.PubSubConfig{}))
}

func TestResourceName(t *testing.T) {
	assert.Equal(t, "projects/dealer/topics/dms-inventory-events", resourceName("dealer", "topics", "dms-inventory-events"))
	assert.Equal(t, "projects/other/topics/x", resourceName("dealer", "topics", "projects/other/topics/x"))
	assert.Equal(t, "projects/dealer/subscriptions/sub", resourceName("dealer", "subscriptions", "sub"))
	assert.Empty(t, resourceName("", "topics", "x"))
	assert.Empty(t, resourceName("dealer", "topics", "  "))
}

package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// SetOfferGuard takes a short-lived lock on a (listing, vendor) pair so a
// double-submitted offer is rejected before it reaches the store. The store's
// partial unique index stays the authority; this only absorbs button mashing.
func (c *Cache) SetOfferGuard(ctx context.Context, listingID, vendorID string, ttl time.Duration) (bool, error) {
	key := "offer:" + listingID + ":" + vendorID
	res := c.client.SetNX(ctx, key, "1", ttl)
	return res.Val(), res.Err()
}

// ReleaseOfferGuard drops the guard once the negotiation is settled so the
// vendor can offer again on the same listing.
func (c *Cache) ReleaseOfferGuard(ctx context.Context, listingID, vendorID string) error {
	return c.client.Del(ctx, "offer:"+listingID+":"+vendorID).Err()
}

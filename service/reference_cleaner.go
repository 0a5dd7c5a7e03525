package application

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"rental_service/domain"
)

// ReferenceCleaner retries removing a deleted listing from every user's
// bookings and favourites in the background.
type ReferenceCleaner struct {
	users    domain.UserStore
	attempts int
	backoff  time.Duration
	logger   *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReferenceCleaner(users domain.UserStore, attempts int, backoff time.Duration, logger *logrus.Logger) *ReferenceCleaner {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReferenceCleaner{
		users:    users,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *ReferenceCleaner) Schedule(homeID primitive.ObjectID) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		delay := c.backoff
		for attempt := 1; attempt <= c.attempts; attempt++ {
			select {
			case <-c.ctx.Done():
				c.logger.Warnf("reference cleanup for home %s abandoned on shutdown", homeID.Hex())
				return
			case <-time.After(delay):
			}

			err := c.users.PullFromAll(c.ctx, homeID)
			if err == nil {
				c.logger.Infof("reference cleanup for home %s succeeded on attempt %d", homeID.Hex(), attempt)
				return
			}
			c.logger.Warnf("reference cleanup for home %s attempt %d failed: %v", homeID.Hex(), attempt, err)
			delay *= 2
		}
		c.logger.Errorf("reference cleanup for home %s gave up after %d attempts, dangling ids are filtered on read", homeID.Hex(), c.attempts)
	}()
}

// Wait blocks until every scheduled cleanup finished.
func (c *ReferenceCleaner) Wait() {
	c.wg.Wait()
}

// Close abandons pending retries and waits for running ones.
func (c *ReferenceCleaner) Close() {
	c.cancel()
	c.wg.Wait()
}

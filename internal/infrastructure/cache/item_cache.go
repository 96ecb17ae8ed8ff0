// Package cache holds Redis and in-process caches with PostgreSQL LISTEN/NOTIFY invalidation.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/pkg/logger"
)

// ItemsChannel is notified by a trigger on stock_items. The payload is the hotel id.
const ItemsChannel = "stock_items_changed"

// ItemCache keeps each hotel's active items in memory for read-only views.
// Services that close periods read the repository directly.
type ItemCache struct {
	source catalog.Repository
	pool   *pgxpool.Pool

	mu     sync.RWMutex
	hotels map[id.ID][]catalog.StockItem

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewItemCache creates a cache over source. pool may be nil, in which case
// entries live until Invalidate is called.
func NewItemCache(source catalog.Repository, pool *pgxpool.Pool) *ItemCache {
	return &ItemCache{
		source: source,
		pool:   pool,
		hotels: make(map[id.ID][]catalog.StockItem),
	}
}

// Start begins listening for invalidations.
func (c *ItemCache) Start(ctx context.Context) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.started || c.pool == nil {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "item cache started")
}

// Stop ends the listener.
func (c *ItemCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	cancel()
	c.wg.Wait()
	logger.Info(context.Background(), "item cache stopped")
}

func (c *ItemCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if _, err = conn.Exec(c.ctx, "LISTEN "+ItemsChannel); err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		// Anything may have changed while we were not listening.
		c.InvalidateAll()
		c.waitForNotifications(conn)
		conn.Release()
	}
}

func (c *ItemCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if conn.Conn().IsClosed() {
				return
			}
			continue
		}

		logger.Debug(c.ctx, "received notification", "channel", n.Channel, "payload", n.Payload)
		c.HandleNotification(n.Payload)
	}
}

// HandleNotification drops the hotel named in payload, or everything when it
// cannot be parsed.
func (c *ItemCache) HandleNotification(payload string) {
	hotel, err := id.Parse(strings.TrimSpace(payload))
	if err != nil {
		c.InvalidateAll()
		return
	}
	c.Invalidate(hotel)
}

// Invalidate drops one hotel.
func (c *ItemCache) Invalidate(hotelID id.ID) {
	c.mu.Lock()
	delete(c.hotels, hotelID)
	c.mu.Unlock()
}

// InvalidateAll empties the cache.
func (c *ItemCache) InvalidateAll() {
	c.mu.Lock()
	c.hotels = make(map[id.ID][]catalog.StockItem)
	c.mu.Unlock()
}

// ActiveItems returns a copy of the hotel's active items, loading them on a miss.
func (c *ItemCache) ActiveItems(ctx context.Context, hotelID id.ID) ([]catalog.StockItem, error) {
	c.mu.RLock()
	items, ok := c.hotels[hotelID]
	c.mu.RUnlock()
	if ok {
		return append([]catalog.StockItem(nil), items...), nil
	}

	items, err := c.source.ListActiveItems(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	c.mu.Lock()
	c.hotels[hotelID] = items
	c.mu.Unlock()
	logger.Debug(appctx.ForHotel(ctx, hotelID), "item cache filled", "items", len(items))

	return append([]catalog.StockItem(nil), items...), nil
}

// Stats reports how many hotels are cached.
func (c *ItemCache) Stats() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hotels)
}

package tracking

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/icancar/fleet-management-sub000/internal/route"
)

type deviceDay struct {
	deviceID string
	day      string
}

type cachedRoutes struct {
	routes    []route.DailyRoute
	expiresAt time.Time
}

// dayEntry holds the routes of one device-day per scope, the user filter the
// fixes were loaded with. gen changes whenever a fix for the device-day is
// ingested.
type dayEntry struct {
	gen    uint64
	scopes map[string]cachedRoutes
}

// cacheTicket is handed out on a miss and must be presented to put. A ticket
// taken before an invalidation no longer matches.
type cacheTicket struct {
	gen uint64
	at  time.Time
}

// routeCache memoizes the routes of one device-day. A new fix for the
// device-day drops every scope at once and fails the tickets of reads that
// were loading fixes meanwhile.
type routeCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	seq   uint64
	items *ttlcache.Cache[deviceDay, *dayEntry]
}

func newRouteCache(ttl time.Duration) *routeCache {
	return &routeCache{
		ttl: ttl,
		now: time.Now,
		items: ttlcache.New[deviceDay, *dayEntry](
			ttlcache.WithTTL[deviceDay, *dayEntry](ttl),
			ttlcache.WithDisableTouchOnHit[deviceDay, *dayEntry](),
		),
	}
}

func (c *routeCache) get(deviceID, day, scope string) ([]route.DailyRoute, cacheTicket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ticket := cacheTicket{at: c.now()}
	item := c.items.Get(deviceDay{deviceID: deviceID, day: day})
	if item == nil {
		return nil, ticket, false
	}

	entry := item.Value()
	ticket.gen = entry.gen
	cached, ok := entry.scopes[scope]
	if !ok {
		return nil, ticket, false
	}
	if ticket.at.After(cached.expiresAt) {
		delete(entry.scopes, scope)
		return nil, ticket, false
	}
	return cached.routes, ticket, true
}

// put stores routes loaded under ticket. It is a no-op when the device-day was
// invalidated after the ticket was taken.
func (c *routeCache) put(deviceID, day, scope string, ticket cacheTicket, routes []route.DailyRoute) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.DeleteExpired()

	now := c.now()
	if now.Sub(ticket.at) >= c.ttl {
		return
	}

	key := deviceDay{deviceID: deviceID, day: day}
	entry := &dayEntry{scopes: make(map[string]cachedRoutes)}
	if item := c.items.Get(key); item != nil {
		entry = item.Value()
	}
	if entry.gen != ticket.gen {
		return
	}

	entry.scopes[scope] = cachedRoutes{routes: routes, expiresAt: now.Add(c.ttl)}
	c.items.Set(key, entry, ttlcache.DefaultTTL)
}

// invalidate drops every scope of the device-day and leaves a fresh generation
// behind for reads still in flight.
func (c *routeCache) invalidate(deviceID, day string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.items.Set(deviceDay{deviceID: deviceID, day: day}, &dayEntry{
		gen:    c.seq,
		scopes: make(map[string]cachedRoutes),
	}, ttlcache.DefaultTTL)
}

func (c *routeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, item := range c.items.Items() {
		n += len(item.Value().scopes)
	}
	return n
}

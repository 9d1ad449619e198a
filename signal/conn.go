package signal

// Conn is the token returned by Connect. The zero value and nil are valid
// disconnected tokens.
type Conn struct {
	link *link
}

// Disconnect removes the callback from its registry. It is a no-op if the
// connection was already removed or the registry was closed.
func (c *Conn) Disconnect() {
	if c == nil || c.link == nil || c.link.owner == nil {
		return
	}
	owner := c.link.owner
	c.link.owner = nil
	owner.disconnect(c.link.handle)
}

// Connected reports whether the callback is still registered.
func (c *Conn) Connected() bool {
	return c != nil && c.link != nil && c.link.owner != nil
}

// Group holds connections that should be dropped together, typically the
// subscriptions owned by one object.
type Group struct {
	conns []*Conn
}

// Add takes ownership of c.
func (g *Group) Add(c *Conn) {
	if c != nil {
		g.conns = append(g.conns, c)
	}
}

// Len returns the number of connections held, connected or not.
func (g *Group) Len() int {
	return len(g.conns)
}

// DisconnectAll disconnects and forgets every held connection.
func (g *Group) DisconnectAll() {
	conns := g.conns
	g.conns = nil
	for _, c := range conns {
		c.Disconnect()
	}
}

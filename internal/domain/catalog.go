package domain

// Catalog is an ordered set of offers keyed by id.
// Order is first appearance; Put on an existing id replaces the value in place.
type Catalog struct {
	order []int64
	byID  map[int64]Offer
}

func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[int64]Offer)}
}

func (c *Catalog) Put(o Offer) {
	if _, ok := c.byID[o.ID]; !ok {
		c.order = append(c.order, o.ID)
	}
	c.byID[o.ID] = o
}

func (c *Catalog) Get(id int64) (Offer, bool) {
	o, ok := c.byID[id]
	return o, ok
}

func (c *Catalog) Len() int {
	return len(c.order)
}

func (c *Catalog) Offers() []Offer {
	out := make([]Offer, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

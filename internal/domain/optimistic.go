package domain

// Mutation is a pure cart transform.
type Mutation func(Cart) (Cart, error)

// AddMutation adds one unit of v.
func AddMutation(v Variant, p ProductSnapshot) Mutation {
	return func(c Cart) (Cart, error) { return Add(c, v, p) }
}

// UpdateMutation applies a relative change.
func UpdateMutation(merchandiseID string, t UpdateType) Mutation {
	return func(c Cart) (Cart, error) { return UpdateItem(c, merchandiseID, t), nil }
}

// SetQuantityMutation sets an absolute quantity.
func SetQuantityMutation(merchandiseID string, qty int, v *Variant, p ProductSnapshot) Mutation {
	return func(c Cart) (Cart, error) { return SetQuantity(c, merchandiseID, qty, v, p) }
}

// Optimistic layers speculative mutations over a confirmed cart. The
// speculative view is shown while I/O is in flight; Settle replaces the
// confirmed cart once it is persisted and Rollback throws the speculation
// away. The confirmed cart only changes through Settle.
//
// An Optimistic is not safe for concurrent use.
type Optimistic struct {
	confirmed Cart
	view      Cart
}

// NewOptimistic starts a layer over confirmed.
func NewOptimistic(confirmed Cart) *Optimistic {
	return &Optimistic{confirmed: confirmed, view: confirmed}
}

// Apply runs m against the current view and returns the new speculative
// view. A failing mutation leaves the view unchanged.
func (o *Optimistic) Apply(m Mutation) (Cart, error) {
	next, err := m(o.view)
	if err != nil {
		return o.view, err
	}
	o.view = next
	return next, nil
}

// Confirmed returns the last confirmed cart.
func (o *Optimistic) Confirmed() Cart {
	return o.confirmed
}

// Settle makes c the confirmed cart and the view.
func (o *Optimistic) Settle(c Cart) {
	o.confirmed = c
	o.view = c
}

// Rollback resets the view to the confirmed cart and returns it.
func (o *Optimistic) Rollback() Cart {
	o.view = o.confirmed
	return o.confirmed
}

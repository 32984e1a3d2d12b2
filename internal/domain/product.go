package domain

// Product is the single catalog entity. ID is assigned by the store and is
// opaque to callers: a hex ObjectID for Mongo, a UUID for the SQL store.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

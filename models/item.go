package models

// Item is a marketplace listing. Item CRUD is handled by the listings
// service; the messaging core only ever looks an item up by id.
type Item struct {
	Model
	Title    string `json:"title" gorm:"not null"`
	SellerID uint   `json:"seller_id" gorm:"not null;index"`
	Seller   User   `json:"-" gorm:"foreignKey:SellerID"`
}

// ItemSummary is the denormalized item shape embedded in message responses.
type ItemSummary struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func (i *Item) Summary() ItemSummary {
	return ItemSummary{
		ID:    i.ID,
		Title: i.Title,
	}
}

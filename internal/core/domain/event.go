package domain

type CartUpdate struct {
	SessionID string
	Count     int
	Total     string
	Items     []CartLine
}

func NewCartUpdate(sessionID string, c Cart) CartUpdate {
	return CartUpdate{
		SessionID: sessionID,
		Count:     c.ItemsCount(),
		Total:     FormatMoney(c.Total()),
		Items:     c.Lines(),
	}
}

type FilterChange struct {
	SessionID string
	Criteria  FilterCriteria
}

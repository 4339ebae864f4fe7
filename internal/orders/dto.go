package orders

import (
	"strings"
	"time"

	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	"github.com/grmc/storefront-backend/pkg/images"
	"github.com/grmc/storefront-backend/pkg/types"
)

// UnknownCustomerName is shown when an order carries no customer name.
const UnknownCustomerName = "عميل مجهول"

// LineItemView is a snapshot line rendered for display.
type LineItemView struct {
	ProductID int64  `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	ImageURL  string `json:"image_url"`
}

// OrderDTO is the read model shared by the customer history, the invoice and
// the back office.
type OrderDTO struct {
	ID            int64               `json:"id"`
	UserID        string              `json:"user_id"`
	CustomerName  string              `json:"customer_name"`
	Phone         string              `json:"phone"`
	Email         string              `json:"email"`
	Address       string              `json:"address"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentLabel  string              `json:"payment_label"`
	Items         []LineItemView      `json:"items"`
	ItemCount     int                 `json:"item_count"`
	Total         string              `json:"total"`
	Status        enums.OrderStatus   `json:"status"`
	StatusLabel   string              `json:"status_label"`
	Step          int                 `json:"step"`
	CreatedAt     time.Time           `json:"created_at"`
}

type ListResult struct {
	Items []OrderDTO     `json:"items"`
	Meta  types.PageMeta `json:"meta"`
}

// TopProduct is one entry of the best sellers ranking.
type TopProduct struct {
	ProductID int64  `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Summary aggregates the order book for the back office.
type Summary struct {
	TotalOrders     int            `json:"total_orders"`
	PendingOrders   int            `json:"pending_orders"`
	CompletedOrders int            `json:"completed_orders"`
	Revenue         string         `json:"revenue"`
	ByStatus        map[string]int `json:"by_status"`
	TopProducts     []TopProduct   `json:"top_products"`
}

// DisplayName falls back to UnknownCustomerName for blank names.
func DisplayName(order models.Order) string {
	if name := strings.TrimSpace(order.FullName); name != "" {
		return name
	}
	return UnknownCustomerName
}

func toDTO(order models.Order, resolver images.Resolver) OrderDTO {
	items := make([]LineItemView, 0, len(order.LineItems))
	count := 0
	for _, line := range order.LineItems {
		items = append(items, LineItemView{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.StringFixed(3),
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal().StringFixed(3),
			ImageURL:  resolver.Resolve(line.ImageRef),
		})
		count += line.Quantity
	}
	return OrderDTO{
		ID:            order.ID,
		UserID:        order.UserID,
		CustomerName:  DisplayName(order),
		Phone:         order.Phone,
		Email:         order.Email,
		Address:       order.Address,
		PaymentMethod: order.PaymentMethod,
		PaymentLabel:  order.PaymentMethod.Label(),
		Items:         items,
		ItemCount:     count,
		Total:         order.DisplayTotal().StringFixed(3),
		Status:        order.Status,
		StatusLabel:   order.Status.Label(),
		Step:          order.Status.Step(),
		CreatedAt:     order.CreatedAt,
	}
}

func toDTOs(rows []models.Order, resolver images.Resolver) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row, resolver))
	}
	return out
}

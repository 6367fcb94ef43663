package procurement

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryStore is an in-memory stand-in for the remote ERP store. It applies
// the same rules the real store enforces: numbers are assigned server-side,
// outstanding quantities are authoritative and a receipt beyond outstanding
// is rejected as stale.
type memoryStore struct {
	mu        sync.Mutex
	orders    map[string]*OrderDetail
	orderSeq  []string
	grns      []GoodsReceivedNote
	suppliers []Supplier
	nextPO    int
	nextGRN   int

	calls           map[string]int
	orderKeys       []string
	receiptKeys     []string
	failCreateOrder error
	failReceipt     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orders: make(map[string]*OrderDetail),
		calls:  make(map[string]int),
	}
}

func (s *memoryStore) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *memoryStore) seedOrder(header PurchaseOrder, lines []OrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	detail := OrderDetail{Header: header, Lines: append([]OrderLine(nil), lines...)}
	s.orders[header.Number] = &detail
	s.orderSeq = append(s.orderSeq, header.Number)
}

func (s *memoryStore) ListOrders(ctx context.Context, filter OrderFilter, page, pageSize int) ([]PurchaseOrder, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListOrders"]++

	var matched []PurchaseOrder
	for _, number := range s.orderSeq {
		header := s.orders[number].Header
		switch filter.Status {
		case StatusOpen, "":
			if header.IsCancelled {
				continue
			}
		case StatusCancelled:
			if !header.IsCancelled {
				continue
			}
		}
		if filter.Account != "" && header.SupplierAccount != filter.Account {
			continue
		}
		matched = append(matched, header)
	}
	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return append([]PurchaseOrder(nil), matched[start:end]...), total, nil
}

func (s *memoryStore) GetOrderDetail(ctx context.Context, poNumber string) (OrderDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["GetOrderDetail"]++
	detail, ok := s.orders[poNumber]
	if !ok {
		return OrderDetail{}, ErrNotFound
	}
	out := *detail
	out.Lines = append([]OrderLine(nil), detail.Lines...)
	return out, nil
}

func (s *memoryStore) ListGRNs(ctx context.Context, page, pageSize int) ([]GoodsReceivedNote, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListGRNs"]++
	total := len(s.grns)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return append([]GoodsReceivedNote(nil), s.grns[start:end]...), total, nil
}

func (s *memoryStore) GetOutstanding(ctx context.Context, poNumber string) ([]OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["GetOutstanding"]++
	detail, ok := s.orders[poNumber]
	if !ok {
		return nil, ErrNotFound
	}
	var out []OrderLine
	for _, line := range detail.Lines {
		if line.QuantityOutstanding > 0 {
			out = append(out, line)
		}
	}
	return out, nil
}

func (s *memoryStore) SearchSuppliers(ctx context.Context, term string) ([]Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["SearchSuppliers"]++
	term = strings.ToLower(term)
	var out []Supplier
	for _, supplier := range s.suppliers {
		if strings.Contains(strings.ToLower(supplier.Name), term) ||
			strings.Contains(strings.ToLower(supplier.Account), term) {
			out = append(out, supplier)
		}
	}
	return out, nil
}

func (s *memoryStore) CreateOrder(ctx context.Context, input CreateOrderInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateOrder"]++
	s.orderKeys = append(s.orderKeys, input.IdempotencyKey)
	if s.failCreateOrder != nil {
		err := s.failCreateOrder
		s.failCreateOrder = nil
		return "", err
	}

	s.nextPO++
	number := fmt.Sprintf("PO-%04d", s.nextPO)
	detail := OrderDetail{
		Header: PurchaseOrder{
			Number:          number,
			SupplierAccount: input.SupplierAccount,
			Warehouse:       input.Warehouse,
			Reference:       input.Reference,
			CreatedAt:       time.Now(),
		},
	}
	var total float64
	for i, line := range input.Lines {
		value := line.Quantity * line.UnitPrice * (1 - line.DiscountPercent/100)
		total += value
		detail.Lines = append(detail.Lines, OrderLine{
			LineNumber:          i + 1,
			StockRef:            line.StockRef,
			SupplierRef:         line.SupplierRef,
			Description:         line.Description,
			Quantity:            line.Quantity,
			UnitPrice:           line.UnitPrice,
			DiscountPercent:     line.DiscountPercent,
			Warehouse:           line.Warehouse,
			QuantityOrdered:     line.Quantity,
			QuantityOutstanding: line.Quantity,
		})
	}
	detail.Header.TotalValue = total
	s.orders[number] = &detail
	s.orderSeq = append(s.orderSeq, number)
	return number, nil
}

func (s *memoryStore) CreateReceipt(ctx context.Context, poNumber string, input CreateReceiptInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateReceipt"]++
	s.receiptKeys = append(s.receiptKeys, input.IdempotencyKey)
	if s.failReceipt != nil {
		err := s.failReceipt
		s.failReceipt = nil
		return "", err
	}

	detail, ok := s.orders[poNumber]
	if !ok {
		return "", ErrNotFound
	}
	byLine := make(map[int]*OrderLine, len(detail.Lines))
	for i := range detail.Lines {
		byLine[detail.Lines[i].LineNumber] = &detail.Lines[i]
	}
	for _, receipt := range input.Lines {
		line, ok := byLine[receipt.LineNumber]
		if !ok || receipt.Quantity > line.QuantityOutstanding {
			return "", ErrStaleQuantity
		}
	}
	for _, receipt := range input.Lines {
		line := byLine[receipt.LineNumber]
		line.QuantityReceived += receipt.Quantity
		line.QuantityOutstanding -= receipt.Quantity
	}

	s.nextGRN++
	number := fmt.Sprintf("GRN-%04d", s.nextGRN)
	s.grns = append(s.grns, GoodsReceivedNote{
		Number:      number,
		OrderNumber: poNumber,
		ReceivedAt:  time.Now(),
		DeliveryRef: input.DeliveryRef,
		Status:      "POSTED",
		CreatedAt:   time.Now(),
	})
	sort.Slice(s.grns, func(i, j int) bool { return s.grns[i].Number < s.grns[j].Number })
	return number, nil
}

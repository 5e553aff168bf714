package datagen

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-ecomload/internal/loader"
	"github.com/pgEdge/pgedge-ecomload/internal/logging"
	"github.com/pgEdge/pgedge-ecomload/internal/tables"
)

// Layouts used in generated files.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

// Config configures fixture generation.
type Config struct {
	// OutDir is where the files are written.
	OutDir string

	// Users is the number of users; each gets one address.
	Users int

	// Products is the number of catalog products.
	Products int

	// Seed makes output reproducible when non-zero.
	Seed uint64

	// Now anchors generated dates. Defaults to the current time.
	Now time.Time
}

// Summary reports the rows written per table.
type Summary struct {
	Files map[string]string
	Rows  map[string]int
}

type row map[string]string

// Generator produces a fixture set whose keys are consistent across files,
// so loading the files in dependency order resolves every foreign key.
type Generator struct {
	cfg   Config
	faker *Faker

	rows map[string][]row
	docs []map[string]any
}

// NewGenerator creates a generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Users < 1 {
		return nil, fmt.Errorf("users must be at least 1")
	}
	if cfg.Products < 1 {
		return nil, fmt.Errorf("products must be at least 1")
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	cfg.Now = cfg.Now.UTC().Truncate(time.Second)

	faker := NewFaker()
	if cfg.Seed != 0 {
		faker = NewFakerWithSeed(cfg.Seed)
	}

	return &Generator{
		cfg:   cfg,
		faker: faker,
		rows:  make(map[string][]row),
	}, nil
}

// Generate builds every table and writes the files.
func (g *Generator) Generate(ctx context.Context) (*Summary, error) {
	products := g.products()
	users := g.users()
	cards := g.cards(users)
	g.carts(users, products)
	g.wishlists(users, products)
	g.orders(users, products, cards)

	if err := os.MkdirAll(g.cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	summary := &Summary{Files: make(map[string]string), Rows: make(map[string]int)}
	for _, c := range tables.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(g.cfg.OutDir, c.File)
		var err error
		var n int
		if c.Source == loader.Document {
			n, err = writeDocument(path, g.docs)
		} else {
			n, err = writeDelimited(path, c.Fields(), g.rows[c.Table])
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}

		summary.Files[c.Table] = path
		summary.Rows[c.Table] = n
		logging.Info().
			Str("table", c.Table).
			Str("file", path).
			Int("rows", n).
			Msg("Generated fixture file")
	}

	return summary, nil
}

type product struct {
	id    string
	price float64
}

type user struct {
	id   string
	name string
}

type card struct {
	id     string
	userID string
}

func (g *Generator) past(years int) time.Time {
	return g.faker.DateRange(g.cfg.Now.AddDate(-years, 0, 0), g.cfg.Now).UTC()
}

func (g *Generator) products() []product {
	f := g.faker
	products := make([]product, 0, g.cfg.Products)

	for range g.cfg.Products {
		id := f.UUID()
		name := f.ProductName()
		retail := f.Price(99, 9999)
		discounted := RoundCents(retail * f.Float64(0.4, 1))
		category := f.ProductCategory()

		images, _ := json.Marshal([]string{
			fmt.Sprintf("http://img.example.com/image/%s/%d.jpeg", Slug(name), 1),
			fmt.Sprintf("http://img.example.com/image/%s/%d.jpeg", Slug(name), 2),
		})
		tree, _ := json.Marshal([]string{category + " >> " + name})

		rating := "No rating available"
		if f.Int(0, 3) == 0 {
			rating = strconv.FormatFloat(float64(f.Int(10, 50))/10, 'f', 1, 64)
		}
		advantage := "FALSE"
		if f.Int(0, 4) == 0 {
			advantage = "TRUE"
		}

		g.docs = append(g.docs, map[string]any{
			"uniq_id":                 id,
			"crawl_timestamp":         g.past(2).Format("2006-01-02 15:04:05 -0700"),
			"product_url":             "http://www.example.com/" + Slug(name) + "/p/" + id,
			"product_name":            name,
			"product_category_tree":   string(tree),
			"pid":                     f.StringN(3) + f.Digits(13),
			"retail_price":            strconv.FormatFloat(retail, 'f', -1, 64),
			"discounted_price":        strconv.FormatFloat(discounted, 'f', -1, 64),
			"image":                   string(images),
			"is_FK_Advantage_product": advantage,
			"description":             f.ProductDescription(),
			"product_rating":          rating,
			"overall_rating":          rating,
			"brand":                   f.Company(),
			"product_specifications": fmt.Sprintf(`{"product_specification"=>[{"key"=>"Color", "value"=>"%s"}, {"key"=>"Material", "value"=>"%s"}]}`,
				f.Color(), f.Word()),
		})
		products = append(products, product{id: id, price: discounted})
	}
	return products
}

func (g *Generator) users() []user {
	f := g.faker
	users := make([]user, 0, g.cfg.Users)

	for i := range g.cfg.Users {
		ref := fmt.Sprintf("%d", i+1)
		updated := g.past(1)
		g.rows["address"] = append(g.rows["address"], row{
			"address_id":        ref,
			"address_uuid":      f.UUID(),
			"primary_address":   f.Street(),
			"secondary_address": f.NullableString(fmt.Sprintf("Apt %d", f.Int(1, 999)), 0.6),
			"district":          f.NullableString(f.City(), 0.2),
			"city_id":           strconv.Itoa(f.Int(1, 600)),
			"postal_code":       f.NullableString(f.Zip(), 0.1),
			"phone":             f.NullableString(f.Phone(), 0.1),
			"location":          f.Point(),
			"last_update":       updated.Format(TimestampLayout),
		})

		first, last := f.FirstName(), f.LastName()
		id := f.UUID()
		created := g.past(3)
		g.rows["user"] = append(g.rows["user"], row{
			"user_id":     id,
			"first_name":  first,
			"last_name":   last,
			"username":    fmt.Sprintf("%s%d", f.Username(), i+1),
			"email":       fmt.Sprintf("user%d.%s", i+1, f.Email()),
			"address_id":  ref,
			"created_at":  created.Format(TimestampLayout),
			"last_update": updated.Format(TimestampLayout),
		})
		users = append(users, user{id: id, name: first + " " + last})
	}
	return users
}

func (g *Generator) cards(users []user) map[string][]card {
	f := g.faker
	cards := make(map[string][]card)

	for _, u := range users {
		for range f.Int(0, 2) {
			ct := Choose(f, CardTypes)
			id := f.UUID()
			g.rows["card"] = append(g.rows["card"], row{
				"card_id":          id,
				"card_number":      f.CardNumber(ct),
				"card_holder_name": u.name,
				"card_type":        ct.Name,
				"expiration_date":  f.ExpirationDate().Format(DateLayout),
				"cvv":              f.CVV(ct),
				"user_id":          u.id,
				"created_at":       g.past(2).Format(TimestampLayout),
			})
			cards[u.id] = append(cards[u.id], card{id: id, userID: u.id})
		}
	}
	return cards
}

func (g *Generator) carts(users []user, products []product) {
	f := g.faker
	for _, u := range users {
		for range f.Int(0, 2) {
			g.rows["cart"] = append(g.rows["cart"], row{
				"cart_id":    f.UUID(),
				"user_id":    u.id,
				"product_id": Choose(f, products).id,
				"quantity":   strconv.Itoa(f.Int(1, 5)),
				"created_at": g.past(1).Format(TimestampLayout),
			})
		}
	}
}

func (g *Generator) wishlists(users []user, products []product) {
	f := g.faker
	for _, u := range users {
		for range f.Int(0, 2) {
			g.rows["wishlist"] = append(g.rows["wishlist"], row{
				"wishlist_id": f.UUID(),
				"user_id":     u.id,
				"product_id":  Choose(f, products).id,
				"created_at":  g.past(1).Format(TimestampLayout),
			})
		}
	}
}

// orders builds orders with their items, one payment per order and one
// invoice per payment. Totals are the sum of item prices and each item's
// price is quantity times the product's discounted price.
func (g *Generator) orders(users []user, products []product, cards map[string][]card) {
	f := g.faker
	for _, u := range users {
		for range f.Int(0, 3) {
			orderID := f.UUID()
			ordered := g.past(1)

			total := 0.0
			for range f.Int(1, 4) {
				p := Choose(f, products)
				qty := f.Int(1, 3)
				price := RoundCents(float64(qty) * p.price)
				total += price
				g.rows["order_items"] = append(g.rows["order_items"], row{
					"order_item_id": f.UUID(),
					"order_id":      orderID,
					"product_id":    p.id,
					"quantity":      strconv.Itoa(qty),
					"price":         strconv.FormatFloat(price, 'f', -1, 64),
				})
			}
			total = RoundCents(total)
			amount := strconv.FormatFloat(total, 'f', -1, 64)

			g.rows["orders"] = append(g.rows["orders"], row{
				"order_id":     orderID,
				"user_id":      u.id,
				"order_date":   ordered.Format(TimestampLayout),
				"total_amount": amount,
				"status":       ChooseWeighted(f, tables.Statuses, []int{2, 2, 3, 5}),
			})

			// payments by users without a card carry no card
			cardID := ""
			if userCards := cards[u.id]; len(userCards) > 0 {
				cardID = Choose(f, userCards).id
			}
			paid := ordered.Add(time.Duration(f.Int(1, 120)) * time.Minute)
			transactionID := f.UUID()
			g.rows["transactions"] = append(g.rows["transactions"], row{
				"transaction_id":   transactionID,
				"order_id":         orderID,
				"card_id":          cardID,
				"amount":           amount,
				"transaction_date": paid.Format(TimestampLayout),
			})

			g.rows["invoices"] = append(g.rows["invoices"], row{
				"invoice_id":     f.UUID(),
				"transaction_id": transactionID,
				"payment_amount": amount,
				"payment_date":   paid.AddDate(0, 0, f.Int(0, 2)).Format(TimestampLayout),
			})
		}
	}
}

func writeDelimited(path string, header []string, rows []row) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return 0, err
	}
	record := make([]string, len(header))
	for _, r := range rows {
		for i, h := range header {
			record[i] = r[h]
		}
		if err := w.Write(record); err != nil {
			return 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return len(rows), file.Close()
}

func writeDocument(path string, docs []map[string]any) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	if docs == nil {
		docs = []map[string]any{}
	}
	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return 0, err
	}
	return len(docs), file.Close()
}

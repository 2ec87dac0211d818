package render

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/ETAnderson/offersync/internal/channels"
	"github.com/ETAnderson/offersync/internal/domain"
)

// TemplateData is what the offer template sees.
type TemplateData struct {
	ID   int64
	Name string

	TypeBronze   bool
	TypeSilver   bool
	TypeGold     bool
	TypeBlack    bool
	TypeLoyalty  bool // bronze, silver or gold
	TypeFeatured bool

	Code         string
	CheckoutCode string
	Price        string

	Big             bool
	BigName         string
	BigCode         string
	BigCheckoutCode string
	BigPrice        string

	FromDay       int
	FromMonth     int
	FromMonthName string
	FromYear      int
	FromTime      string
	ToDay         int
	ToMonth       int
	ToMonthName   string
	ToYear        int
	ToTime        string
}

// ImageLinker resolves the image shown as the message preview.
type ImageLinker interface {
	ImageURL(ctx context.Context, o domain.Offer) (string, error)
}

// SourceImage links the upstream product image as is.
type SourceImage struct{}

func (SourceImage) ImageURL(ctx context.Context, o domain.Offer) (string, error) {
	return o.Image, nil
}

type Options struct {
	// ExchangeURL may contain {code} and {authKey}.
	ExchangeURL      string
	ButtonlessLevels []int
	Images           ImageLinker
}

type Renderer struct {
	strings Strings
	offer   *template.Template
	bigName *template.Template
	opts    Options
}

func NewRenderer(s Strings, opts Options) (*Renderer, error) {
	offer, err := template.New("offer").Option("missingkey=error").Parse(s.Offer)
	if err != nil {
		return nil, fmt.Errorf("parse offer template: %w", err)
	}
	bigName, err := template.New("big_name").Option("missingkey=error").Parse(s.BigName)
	if err != nil {
		return nil, fmt.Errorf("parse big_name template: %w", err)
	}
	if opts.Images == nil {
		opts.Images = SourceImage{}
	}
	return &Renderer{strings: s, offer: offer, bigName: bigName, opts: opts}, nil
}

// Text renders the message body, prefixed with an invisible link that makes the image the preview.
func (r *Renderer) Text(ctx context.Context, o domain.Offer) (string, error) {
	data, err := r.templateData(o)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := r.offer.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render offer %d: %w", o.ID, err)
	}

	img, err := r.opts.Images.ImageURL(ctx, o)
	if err != nil {
		return "", fmt.Errorf("render offer %d image: %w", o.ID, err)
	}

	return "[\u200b](" + img + ")" + buf.String(), nil
}

func (r *Renderer) ExpiredText() string {
	return r.strings.OfferExpired
}

// Markup returns the redemption button, or an empty keyboard for buttonless levels.
func (r *Renderer) Markup(o domain.Offer, authKey string) channels.Markup {
	if o.LevelIn(r.opts.ButtonlessLevels) || r.opts.ExchangeURL == "" {
		return channels.EmptyMarkup()
	}

	link := strings.NewReplacer(
		"{code}", o.Normal.Code,
		"{authKey}", authKey,
	).Replace(r.opts.ExchangeURL)

	return channels.SingleButton(r.strings.ExchangeText, link)
}

func (r *Renderer) templateData(o domain.Offer) (TemplateData, error) {
	d := TemplateData{
		ID:           o.ID,
		Name:         o.Name,
		TypeBronze:   o.IsLevel(domain.LevelBronze),
		TypeSilver:   o.IsLevel(domain.LevelSilver),
		TypeGold:     o.IsLevel(domain.LevelGold),
		TypeBlack:    o.IsLevel(domain.LevelBlack),
		TypeLoyalty:  o.LevelIn([]int{domain.LevelBronze, domain.LevelSilver, domain.LevelGold}),
		TypeFeatured: o.Type == domain.OfferTypeFeatured,
		Code:         o.Normal.Code,
		CheckoutCode: o.Normal.CheckoutCode,
		Price:        r.formatPrice(o.Normal.Price),
	}

	d.FromDay, d.FromMonth, d.FromYear, d.FromMonthName, d.FromTime = r.dateParts(o.DateFrom)
	d.ToDay, d.ToMonth, d.ToYear, d.ToMonthName, d.ToTime = r.dateParts(o.DateTo)

	if o.Big != nil {
		d.Big = true
		d.BigCode = o.Big.Code
		d.BigCheckoutCode = o.Big.CheckoutCode
		d.BigPrice = r.formatPrice(o.Big.Price)

		var buf bytes.Buffer
		if err := r.bigName.Execute(&buf, d); err != nil {
			return TemplateData{}, fmt.Errorf("render offer %d big name: %w", o.ID, err)
		}
		d.BigName = buf.String()
	}

	return d, nil
}

func (r *Renderer) formatPrice(p float64) string {
	s := strconv.FormatFloat(p, 'f', 2, 64)
	if r.strings.DecimalSeparator != "" && r.strings.DecimalSeparator != "." {
		s = strings.Replace(s, ".", r.strings.DecimalSeparator, 1)
	}
	return s
}

func (r *Renderer) dateParts(t time.Time) (day int, month int, year int, monthName string, clock string) {
	day, month, year = t.Day(), int(t.Month()), t.Year()
	if month-1 < len(r.strings.Months) {
		monthName = r.strings.Months[month-1]
	}
	return day, month, year, monthName, t.Format("15:04")
}

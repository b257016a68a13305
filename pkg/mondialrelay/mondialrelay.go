// Package mondialrelay searches Mondial Relay pickup points through the
// WSI4_PointRelais_Recherche SOAP operation.
package mondialrelay

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rituelsdebene/boutique/pkg/cache"
	httpc "github.com/rituelsdebene/boutique/pkg/http"
	"github.com/rituelsdebene/boutique/pkg/metrics"
)

const (
	service    = "mondialrelay"
	namespace  = "http://www.mondialrelay.fr/webservice/"
	soapAction = namespace + "WSI4_PointRelais_Recherche"
	cacheTTL   = time.Hour
)

// ErrTimeout is matched by errors returned when the carrier did not answer in time.
var ErrTimeout = httpc.ErrTimeout

// StatusError is a non-zero STAT code returned by the web service.
type StatusError struct {
	Stat string
}

func (e *StatusError) Error() string {
	return "mondialrelay: web service returned STAT " + e.Stat
}

// Horaires holds opening hours as "HHMM" pairs, empty strings for closed slots.
type Horaires struct {
	String []string `xml:"string" json:"string"`
}

// Point is one pickup location.
type Point struct {
	Num              string   `xml:"Num" json:"Num"`
	LgAdr1           string   `xml:"LgAdr1" json:"LgAdr1"`
	LgAdr2           string   `xml:"LgAdr2" json:"LgAdr2"`
	LgAdr3           string   `xml:"LgAdr3" json:"LgAdr3"`
	LgAdr4           string   `xml:"LgAdr4" json:"LgAdr4"`
	CP               string   `xml:"CP" json:"CP"`
	Ville            string   `xml:"Ville" json:"Ville"`
	Pays             string   `xml:"Pays" json:"Pays"`
	Latitude         string   `xml:"Latitude" json:"Latitude"`
	Longitude        string   `xml:"Longitude" json:"Longitude"`
	Information      string   `xml:"Localisation1" json:"Information,omitempty"`
	HorairesLundi    Horaires `xml:"Horaires_Lundi" json:"Horaires_Lundi"`
	HorairesMardi    Horaires `xml:"Horaires_Mardi" json:"Horaires_Mardi"`
	HorairesMercredi Horaires `xml:"Horaires_Mercredi" json:"Horaires_Mercredi"`
	HorairesJeudi    Horaires `xml:"Horaires_Jeudi" json:"Horaires_Jeudi"`
	HorairesVendredi Horaires `xml:"Horaires_Vendredi" json:"Horaires_Vendredi"`
	HorairesSamedi   Horaires `xml:"Horaires_Samedi" json:"Horaires_Samedi"`
	HorairesDimanche Horaires `xml:"Horaires_Dimanche" json:"Horaires_Dimanche"`
}

func (p *Point) trim() {
	for _, f := range []*string{&p.Num, &p.LgAdr1, &p.LgAdr2, &p.LgAdr3, &p.LgAdr4,
		&p.CP, &p.Ville, &p.Pays, &p.Latitude, &p.Longitude, &p.Information} {
		*f = strings.TrimSpace(*f)
	}
}

// Config configures a Client. Zero Timeout means 10s, zero Results means 10.
type Config struct {
	Enseigne   string
	PrivateKey string
	URL        string
	Country    string
	Results    int
	Timeout    time.Duration
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Country == "" {
		cfg.Country = "FR"
	}
	if cfg.Results <= 0 {
		cfg.Results = 10
	}
	return &Client{cfg: cfg}
}

type searchRequest struct {
	XMLName         xml.Name `xml:"WSI4_PointRelais_Recherche"`
	Xmlns           string   `xml:"xmlns,attr"`
	Enseigne        string
	Pays            string
	NumPointRelais  string
	Ville           string
	CP              string
	Latitude        string
	Longitude       string
	Taille          string
	Poids           string
	Action          string
	DelaiEnvoi      string
	RayonRecherche  string
	TypeActivite    string
	NACE            string
	NombreResultats string
	Security        string
}

// sign fills Security with the uppercase MD5 of every parameter in
// declaration order followed by the private key.
func (r *searchRequest) sign(privateKey string) {
	parts := []string{
		r.Enseigne, r.Pays, r.NumPointRelais, r.Ville, r.CP, r.Latitude, r.Longitude,
		r.Taille, r.Poids, r.Action, r.DelaiEnvoi, r.RayonRecherche, r.TypeActivite,
		r.NACE, r.NombreResultats,
	}
	r.Security = SecurityKey(strings.Join(parts, ""), privateKey)
}

// SecurityKey is the web service signature of params with privateKey.
func SecurityKey(params, privateKey string) string {
	sum := md5.Sum([]byte(params + privateKey))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

type envelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	Soap    string   `xml:"xmlns:soap,attr"`
	Body    struct {
		Content interface{}
	} `xml:"soap:Body"`
}

type searchResponse struct {
	Body struct {
		Response struct {
			Result struct {
				STAT         string
				PointsRelais struct {
					Details []Point `xml:"PointRelais_Details"`
				}
			} `xml:"WSI4_PointRelais_RechercheResult"`
		} `xml:"WSI4_PointRelais_RechercheResponse"`
	} `xml:"Body"`
}

// Search returns the pickup points near a French postcode. Results are
// cached for an hour per postcode.
func (c *Client) Search(ctx context.Context, postcode string) ([]Point, error) {
	return cache.Remember("mondialrelay:points:"+c.cfg.Country+":"+postcode, cacheTTL, func() ([]Point, error) {
		return c.search(ctx, postcode)
	})
}

func (c *Client) search(ctx context.Context, postcode string) ([]Point, error) {
	req := &searchRequest{
		Xmlns:           namespace,
		Enseigne:        c.cfg.Enseigne,
		Pays:            c.cfg.Country,
		CP:              postcode,
		NombreResultats: fmt.Sprint(c.cfg.Results),
	}
	req.sign(c.cfg.PrivateKey)

	env := envelope{Soap: "http://schemas.xmlsoap.org/soap/envelope/"}
	env.Body.Content = req
	payload, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("mondialrelay: encode request: %w", err)
	}

	start := time.Now()
	resp, err := httpc.Post(c.cfg.URL).
		WithContext(ctx).
		Header("Content-Type", "text/xml; charset=utf-8").
		Header("SOAPAction", soapAction).
		Header("Accept", "text/xml").
		Body(xml.Header + string(payload)).
		Timeout(c.cfg.Timeout).
		Send()
	if err != nil {
		outcome := "error"
		if errors.Is(err, httpc.ErrTimeout) {
			outcome = "timeout"
		}
		metrics.ObserveUpstream(service, outcome, start)
		return nil, fmt.Errorf("mondialrelay: search %s: %w", postcode, err)
	}
	if err := resp.Throw(); err != nil {
		metrics.ObserveUpstream(service, "error", start)
		return nil, fmt.Errorf("mondialrelay: search %s: %w", postcode, err)
	}

	points, err := Parse(resp.Raw)
	if err != nil {
		metrics.ObserveUpstream(service, "error", start)
		return nil, err
	}
	metrics.ObserveUpstream(service, "ok", start)
	return points, nil
}

// Parse decodes a WSI4_PointRelais_Recherche SOAP response.
func Parse(raw []byte) ([]Point, error) {
	var out searchResponse
	if err := xml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("mondialrelay: decode response: %w", err)
	}

	result := out.Body.Response.Result
	if result.STAT != "0" {
		return nil, &StatusError{Stat: result.STAT}
	}

	points := result.PointsRelais.Details
	for i := range points {
		points[i].trim()
	}
	if points == nil {
		points = []Point{}
	}
	return points, nil
}

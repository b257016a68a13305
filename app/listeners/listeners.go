// Package listeners reacts to domain events after the originating
// transaction committed: metrics and transactional emails.
package listeners

import (
	"errors"

	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/pkg/event"
	"github.com/rituelsdebene/boutique/pkg/logger"
	"github.com/rituelsdebene/boutique/pkg/mail"
	"github.com/rituelsdebene/boutique/pkg/metrics"
	"github.com/rituelsdebene/boutique/pkg/workerpool"
)

const confirmTemplate = `<p>Bonjour {{.Prenom}},</p>
<p>Merci pour votre inscription. Confirmez votre compte en suivant ce lien :</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>`

const orderTemplate = `<p>Bonjour {{.Prenom}},</p>
<p>Votre commande n°{{.OrderID}} est enregistrée ({{.Total}} €, {{.Articles}} article(s), livraison {{.Mode}}).</p>
<p>Nous vous préviendrons dès qu'elle sera préparée.</p>`

// Submitter queues work off the request path.
type Submitter interface {
	Submit(task func()) error
}

// Register subscribes the storefront listeners on d. Emails go through pool.
func Register(d *event.Dispatcher, pool Submitter) {
	d.Listen(services.EventUserRegistered, func(payload interface{}) {
		e, ok := payload.(services.UserRegistered)
		if !ok {
			return
		}
		link := config.FrontendURL() + "/confirm/" + e.Token
		queue(pool, "confirmation", func() error {
			return mail.To(e.Email).
				Subject("Confirmez votre compte").
				Render(confirmTemplate, map[string]string{"Prenom": e.Prenom, "Link": link}).
				Send()
		})
	})

	d.Listen(services.EventOrderFinalized, func(payload interface{}) {
		e, ok := payload.(services.OrderFinalized)
		if !ok {
			return
		}
		metrics.OrdersFinalized.Inc()
		metrics.OrderLines.Observe(float64(len(e.Lines)))

		articles := 0
		for _, l := range e.Lines {
			articles += l.Quantite
		}
		queue(pool, "order", func() error {
			return mail.To(e.Email).
				Subject("Confirmation de votre commande").
				Render(orderTemplate, map[string]interface{}{
					"Prenom":   e.Prenom,
					"OrderID":  e.OrderID,
					"Total":    e.Total.StringFixed(2),
					"Articles": articles,
					"Mode":     e.ModeLivraison,
				}).
				Send()
		})
	})
}

func queue(pool Submitter, template string, send func() error) {
	err := pool.Submit(func() {
		if err := send(); err != nil {
			metrics.MailsSent.WithLabelValues(template, "failed").Inc()
			logger.Warn("mail: send failed", "template", template, "error", err)
			return
		}
		metrics.MailsSent.WithLabelValues(template, "sent").Inc()
	})
	if err != nil {
		metrics.MailsSent.WithLabelValues(template, "dropped").Inc()
		if errors.Is(err, workerpool.ErrPoolFull) {
			logger.Warn("mail: queue full, dropping", "template", template)
			return
		}
		logger.Warn("mail: not queued", "template", template, "error", err)
	}
}

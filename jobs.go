package walletcore

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"

	"github.com/lynxwallet/walletcore/schema"
)

func (w *Wallet) runJobs() {
	w.cron.Every(int(w.config.SyncInterval.Seconds())).Seconds().SingletonMode().Do(w.refreshAccounts)
	w.cron.Every(int(w.config.RateInterval.Seconds())).Seconds().SingletonMode().Do(w.updateRates)

	w.cron.StartAsync()
}

func (w *Wallet) refreshAccounts() {
	if err := w.SyncAllAccounts(); err != nil {
		log.Error("background sync", "err", err)
	}
}

// updateRates refreshes the cached fiat exchange rate of every known token
// contract from the provider's rate endpoint. The rate is the one field the
// merge engine preserves, so this job is its only writer.
func (w *Wallet) updateRates() {
	updated := make([]schema.TokenContract, 0)
	for _, contract := range w.Contracts.Items() {
		if contract.Blacklisted {
			continue
		}
		provider, err := w.provider(contract.ChainID)
		if err != nil {
			continue
		}
		rate, err := fetchRate(provider.HistoryURL, contract.Symbol, w.config.FiatSymbol)
		if err != nil {
			log.Warn("rate fetch failed", "symbol", contract.Symbol, "err", err)
			continue
		}
		contract.Rate = rate
		updated = append(updated, contract)
	}
	w.Contracts.MergeIn(updated)
}

func fetchRate(historyURL, symbol, fiat string) (decimal.Decimal, error) {
	req := gentleman.New().URL(historyURL).Get()
	req.AddPath("/v2/state/get_rate")
	req.SetQuery("symbol", symbol)
	req.SetQuery("fiat", fiat)
	resp, err := req.Send()
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Close()
	if !resp.Ok {
		return decimal.Zero, schema.ErrNotFound
	}
	return decimal.NewFromFloat(gjson.Get(resp.String(), "rate").Float()), nil
}

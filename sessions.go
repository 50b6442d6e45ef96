package walletcore

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lynxwallet/walletcore/schema"
)

// recordSession persists the durable grant behind an accepted identity
// request so it can be listed and revoked later.
func (w *Wallet) recordSession(req schema.SigningRequest, signer schema.Account) {
	session := schema.Session{
		SID:       req.SID,
		Requester: req.Requester,
		Signer:    signer.Name,
		ChainID:   req.ChainID,
		Callback:  req.Callback.URL,
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	w.Sessions.Upsert(session)
	if err := w.SaveAll(); err != nil {
		log.Error("persist session", "err", err, "sid", session.SID)
	}
}

func (w *Wallet) ListSessions() []schema.Session {
	return w.Sessions.Items()
}

// RevokeSession removes a session locally and notifies the requester with a
// best-effort POST to the stored callback. The local removal happens
// regardless of the POST's outcome.
func (w *Wallet) RevokeSession(sid string) error {
	session, ok := w.Sessions.Get(sid)
	if !ok {
		return errKind(KindValidation, "session.revoke", schema.ErrSessionNotExist)
	}

	if session.Callback != "" {
		url := strings.ReplaceAll(session.Callback, schema.SIDPlaceholder, session.SID)
		payload := schema.CallbackPayload{SID: session.SID}
		if err := postCallback(url, payload); err != nil {
			log.Warn("revocation callback failed", "sid", sid, "err", err)
		}
	}

	if err := w.Sessions.Delete(sid); err != nil {
		return errKind(KindValidation, "session.revoke", err)
	}
	if err := w.SaveAll(); err != nil {
		log.Error("persist after revoke", "err", err, "sid", sid)
	}
	return nil
}

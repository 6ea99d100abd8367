package domain

// MailSettings holds the account-level mail settings replicated from the
// server. Raw keeps the full JSON document; the extracted fields are the
// ones the engine itself consults.
type MailSettings struct {
	AccountID        string
	DisplayName      string
	Signature        string
	AutoSaveContacts bool
	Raw              []byte
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledgerwise/internal/client"
	"ledgerwise/internal/gst"
	"ledgerwise/internal/ledger"
	"ledgerwise/internal/session"
)

// errUsage is returned after a flag set has already printed its usage.
var errUsage = errors.New("usage")

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// signedIn loads the session and returns a client that saves refreshed
// tokens back to it.
func (a *app) signedIn() (*client.LedgerwiseClient, error) {
	sess, err := a.store.Load()
	if err != nil {
		return nil, err
	}

	c := client.NewLedgerwiseClient(sess.APIURL, client.Tokens{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	}, a.httpClient)
	c.OnRefresh = func(r client.AuthResponse) {
		sess.AccessToken = r.AccessToken
		sess.RefreshToken = r.RefreshToken
		if r.User.ID != "" {
			sess.User = r.User
		}
		if err := a.store.Save(sess); err != nil {
			fmt.Fprintf(a.stderr, "warning: could not save session: %v\n", err)
		}
	}
	return c, nil
}

// expired clears a session the API no longer accepts.
func (a *app) expired(err error) error {
	if client.IsUnauthorized(err) {
		_ = a.store.Clear()
		return fmt.Errorf("session expired, sign in again: %w", err)
	}
	return err
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	apiURL := fs.String("api", a.apiURL, "API base URL")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (defaults to $LEDGERWISE_PASSWORD)")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *apiURL == "" {
		*apiURL = defaultAPIURL
	}
	if *password == "" {
		*password = os.Getenv("LEDGERWISE_PASSWORD")
	}
	if *email == "" || *password == "" {
		return errors.New("login needs -email and -password")
	}

	c := client.NewLedgerwiseClient(*apiURL, client.Tokens{}, a.httpClient)
	result, err := c.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	sess := &session.Session{
		APIURL:       *apiURL,
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
	if err := a.store.Save(sess); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Signed in as %s\n", result.User.Email)
	return nil
}

func (a *app) logout(_ context.Context, args []string) error {
	if err := parse(a.flagSet("logout"), args); err != nil {
		return err
	}
	if err := a.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Signed out")
	return nil
}

func (a *app) whoami(ctx context.Context, args []string) error {
	if err := parse(a.flagSet("whoami"), args); err != nil {
		return err
	}
	c, err := a.signedIn()
	if err != nil {
		return err
	}

	user, err := c.Profile(ctx)
	if err != nil {
		return a.expired(err)
	}
	name := user.Name
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(a.stdout, "%s <%s> (%s)\n", name, user.Email, user.Role)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flagSet("add")
	date := fs.String("date", time.Now().Format("2006-01-02"), "transaction date (YYYY-MM-DD)")
	vendor := fs.String("vendor", "", "vendor or customer")
	amount := fs.String("amount", "", "base amount before GST, e.g. 1,180.50")
	rate := fs.Int("rate", int(gst.Rate18), "GST rate ("+gst.RatesString()+")")
	txType := fs.String("type", "expense", "income or expense")
	category := fs.String("category", "", "category ID")
	description := fs.String("description", "", "description")
	invoice := fs.String("invoice", "", "invoice number")
	if err := parse(fs, args); err != nil {
		return err
	}

	in := ledger.Input{
		Date:          *date,
		Vendor:        *vendor,
		BaseAmount:    ledger.Amount(*amount),
		GSTRate:       rate,
		Type:          *txType,
		Description:   *description,
		InvoiceNumber: *invoice,
	}
	if *category != "" {
		in.CategoryID = category
	}

	c, err := a.signedIn()
	if err != nil {
		return err
	}
	tx, err := c.CreateTransaction(ctx, in)
	if err != nil {
		return a.expired(err)
	}

	fmt.Fprintf(a.stdout, "Added %s %s: %s + %s GST (%d%%) = %s\n",
		tx.Type, tx.Vendor,
		gst.FormatINR(tx.BaseAmount), gst.FormatINR(tx.GSTAmount), tx.GSTRate, gst.FormatINR(tx.TotalAmount))
	return nil
}

func (a *app) quote(ctx context.Context, args []string) error {
	fs := a.flagSet("quote")
	amount := fs.String("amount", "", "base amount before GST")
	rate := fs.Int("rate", int(gst.Rate18), "GST rate ("+gst.RatesString()+")")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *amount == "" && fs.NArg() > 0 {
		*amount = fs.Arg(0)
	}

	c, err := a.signedIn()
	if err != nil {
		return err
	}
	q, err := c.Quote(ctx, *amount, *rate)
	if err != nil {
		return a.expired(err)
	}

	fmt.Fprintf(a.stdout, "Base:  %s\nGST:   %s (%d%%)\nTotal: %s\n",
		q.Formatted.BaseAmount, q.Formatted.GSTAmount, q.Rate, q.Formatted.TotalAmount)
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	fs := a.flagSet("upload")
	confirm := fs.Bool("confirm", false, "add the invoice to the ledger when it was read cleanly")
	txType := fs.String("type", "expense", "income or expense, used with -confirm")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "usage: ledgerwise upload [-confirm] [-type expense] <invoice.pdf|png|jpg>")
		return errUsage
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading invoice: %w", err)
	}

	c, err := a.signedIn()
	if err != nil {
		return err
	}
	result, err := c.ExtractInvoice(ctx, filepath.Base(path), data)
	if err != nil {
		return a.expired(err)
	}

	printExtraction(a, result)

	if !*confirm {
		return nil
	}
	if result.Status != "ok" {
		return errors.New("invoice was not read cleanly; review it and add it with `ledgerwise add`")
	}

	in, err := confirmInput(result.Candidate, *txType)
	if err != nil {
		return err
	}
	tx, err := c.ConfirmExtraction(ctx, result.ExtractionID, in)
	if err != nil {
		return a.expired(err)
	}
	fmt.Fprintf(a.stdout, "Added %s %s: %s\n", tx.Type, tx.Vendor, gst.FormatINR(tx.TotalAmount))
	return nil
}

func printExtraction(a *app, result *client.Extraction) {
	cand := result.Candidate
	fmt.Fprintf(a.stdout, "Extraction %s (%s, confidence %.0f%%)\n", result.ExtractionID, result.Status, result.Confidence*100)
	fmt.Fprintf(a.stdout, "  Vendor:  %s\n", orDash(cand.VendorName))
	fmt.Fprintf(a.stdout, "  Date:    %s\n", orDash(cand.InvoiceDate))
	fmt.Fprintf(a.stdout, "  Invoice: %s\n", orDash(cand.InvoiceNumber))
	fmt.Fprintf(a.stdout, "  Base:    %s\n", amountOrDash(cand.BaseAmount))
	if cand.GSTRate != nil {
		fmt.Fprintf(a.stdout, "  GST:     %s (%d%%)\n", amountOrDash(cand.GSTAmount), *cand.GSTRate)
	} else {
		fmt.Fprintf(a.stdout, "  GST:     %s\n", amountOrDash(cand.GSTAmount))
	}
	fmt.Fprintf(a.stdout, "  Total:   %s\n", amountOrDash(cand.TotalAmount))
	for _, w := range result.Warnings {
		fmt.Fprintf(a.stdout, "  warning: %s\n", w)
	}
}

// confirmInput turns a clean candidate into transaction input.
func confirmInput(cand client.Candidate, txType string) (ledger.Input, error) {
	if cand.BaseAmount == nil || cand.GSTRate == nil || cand.InvoiceDate == "" || cand.VendorName == "" {
		return ledger.Input{}, errors.New("invoice is missing fields; add it with `ledgerwise add`")
	}
	rate := int(*cand.GSTRate)
	return ledger.Input{
		Date:          cand.InvoiceDate,
		Vendor:        cand.VendorName,
		BaseAmount:    ledger.AmountFromMinor(*cand.BaseAmount),
		GSTRate:       &rate,
		Type:          txType,
		InvoiceNumber: cand.InvoiceNumber,
	}, nil
}

func (a *app) ask(ctx context.Context, args []string) error {
	fs := a.flagSet("ask")
	if err := parse(fs, args); err != nil {
		return err
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Fprintln(a.stderr, `usage: ledgerwise ask "How much GST do I owe this month?"`)
		return errUsage
	}

	c, err := a.signedIn()
	if err != nil {
		return err
	}
	answer, err := c.Ask(ctx, question)
	if err != nil {
		return a.expired(err)
	}
	fmt.Fprintln(a.stdout, answer.Answer)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func amountOrDash(v *int64) string {
	if v == nil {
		return "-"
	}
	return gst.FormatINR(*v)
}


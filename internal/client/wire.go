package client

import (
	"time"

	"github.com/supstonad/be-utbetaling/internal/domain"
)

// Fixed codes of the oppdrag instruction schema.
const (
	AksjonskodeNy    = "1"
	KodeFagomraade   = "SUPSTONAD"
	TypeSatsMonth    = "MND"
	KlassekodeStonad = "SUUREOR"
)

// OppdragMessage is one disbursement instruction as the ledger expects it.
// Field names and timestamp layouts are part of the wire contract.
type OppdragMessage struct {
	Aksjonskode      string         `json:"aksjonskode"`
	KodeEndring      string         `json:"kodeEndring"`
	KodeFagomraade   string         `json:"kodeFagomraade"`
	FagsystemID      string         `json:"fagsystemId"`
	OppdragGjelderID string         `json:"oppdragGjelderId"`
	DatoGjelderFom   string         `json:"datoOppdragGjelderFom"`
	TidspktMelding   string         `json:"tidspktMelding"`
	Linjer           []OppdragLinje `json:"oppdragslinjer"`
}

// OppdragLinje is one line of the instruction.
type OppdragLinje struct {
	KodeEndringLinje string `json:"kodeEndringLinje"`
	KodeStatusLinje  string `json:"kodeStatusLinje,omitempty"`
	DelytelseID      string `json:"delytelseId"`
	KodeKlassifik    string `json:"kodeKlassifik"`
	DatoVedtakFom    string `json:"datoVedtakFom"`
	DatoVedtakTom    string `json:"datoVedtakTom"`
	Sats             int64  `json:"sats"`
	TypeSats         string `json:"typeSats"`
	FradragTillegg   string `json:"fradragTillegg"`
	SaksbehID        string `json:"saksbehId"`
	UtbetalesTilID   string `json:"utbetalesTilId"`
	RefDelytelseID   string `json:"refDelytelseId,omitempty"`
}

// BuildOppdragMessage serializes a batch for transmission. The first line's
// change code decides the message-level change code; a reactivation line keeps
// ENDR as its change code and marks REAK in its status code.
func BuildOppdragMessage(batch domain.PaymentBatch, payeeID, handlerID string, now time.Time) OppdragMessage {
	msg := OppdragMessage{
		Aksjonskode:      AksjonskodeNy,
		KodeEndring:      changeCode(batch.Lines[0].Kind),
		KodeFagomraade:   KodeFagomraade,
		FagsystemID:      batch.CaseID,
		OppdragGjelderID: payeeID,
		DatoGjelderFom:   batch.Lines[0].Period.From.Format(time.DateOnly),
		TidspktMelding:   now.Format(domain.MessageStampLayout),
	}
	for _, l := range batch.Lines {
		linje := OppdragLinje{
			KodeEndringLinje: changeCode(l.Kind),
			DelytelseID:      l.ID,
			KodeKlassifik:    KlassekodeStonad,
			DatoVedtakFom:    l.Period.From.Format(time.DateOnly),
			DatoVedtakTom:    l.Period.To.Format(time.DateOnly),
			Sats:             l.Amount,
			TypeSats:         TypeSatsMonth,
			FradragTillegg:   string(domain.SignTillegg),
			SaksbehID:        handlerID,
			UtbetalesTilID:   payeeID,
			RefDelytelseID:   l.PredecessorID,
		}
		if l.Kind == domain.LineReactivation {
			linje.KodeStatusLinje = "REAK"
		}
		msg.Linjer = append(msg.Linjer, linje)
	}
	return msg
}

func changeCode(kind domain.LineKind) string {
	if kind == domain.LineNew {
		return "NY"
	}
	return "ENDR"
}

// Kvittering is the ledger's acknowledgement payload. Severity 00 is accepted,
// 04 accepted with warning, anything above means nothing was registered.
type Kvittering struct {
	Alvorlighetsgrad string `json:"alvorlighetsgrad"`
	KodeMelding      string `json:"kodeMelding,omitempty"`
	BeskrMelding     string `json:"beskrMelding,omitempty"`
}

// Outcome maps the severity code to the domain outcome.
func (k Kvittering) Outcome() domain.AckOutcome {
	switch k.Alvorlighetsgrad {
	case "00":
		return domain.AckOk
	case "04":
		return domain.AckWithWarning
	default:
		return domain.AckFailed
	}
}

// AvstemmingMessage is a reconciliation report as the ledger expects it.
type AvstemmingMessage struct {
	Aksjon   AvstemmingAksjon   `json:"aksjon"`
	Total    AvstemmingTotal    `json:"total"`
	Grunnlag AvstemmingGrunnlag `json:"grunnlag"`
	Detaljer []AvstemmingDetalj `json:"detaljer,omitempty"`
}

type AvstemmingAksjon struct {
	AksjonType              string `json:"aksjonType"`
	AvstemmingType          string `json:"avstemmingType"`
	AvleverendeKomponent    string `json:"avleverendeKomponentKode"`
	MottakendeKomponent     string `json:"mottakendeKomponentKode"`
	AvleverendeAvstemmingID string `json:"avleverendeAvstemmingId"`
	NokkelFom               string `json:"nokkelFom"`
	NokkelTom               string `json:"nokkelTom"`
}

type AvstemmingTotal struct {
	TotalAntall int    `json:"totalAntall"`
	TotalBelop  int64  `json:"totalBelop"`
	Fortegn     string `json:"fortegn"`
}

type AvstemmingGrunnlag struct {
	GodkjentAntall  int    `json:"godkjentAntall"`
	GodkjentBelop   int64  `json:"godkjentBelop"`
	GodkjentFortegn string `json:"godkjentFortegn"`
	VarselAntall    int    `json:"varselAntall"`
	VarselBelop     int64  `json:"varselBelop"`
	VarselFortegn   string `json:"varselFortegn"`
	AvvistAntall    int    `json:"avvistAntall"`
	AvvistBelop     int64  `json:"avvistBelop"`
	AvvistFortegn   string `json:"avvistFortegn"`
	MangelAntall    int    `json:"manglerAntall"`
	MangelBelop     int64  `json:"manglerBelop"`
	MangelFortegn   string `json:"manglerFortegn"`
}

type AvstemmingDetalj struct {
	BatchID   string `json:"avleverendeTransaksjonNokkel"`
	CaseID    string `json:"fagsystemId"`
	Status    string `json:"status"`
	Belop     int64  `json:"belop"`
	Tidspunkt string `json:"tidspunkt,omitempty"`
}

// BuildAvstemmingMessage serializes a settlement report.
func BuildAvstemmingMessage(report domain.ReconciliationReport) AvstemmingMessage {
	msg := AvstemmingMessage{
		Aksjon: AvstemmingAksjon{
			AksjonType:              "DATA",
			AvstemmingType:          report.Action.Type,
			AvleverendeKomponent:    report.Action.SourceComponent,
			MottakendeKomponent:     report.Action.ReceivingComponent,
			AvleverendeAvstemmingID: report.Action.Key,
			NokkelFom:               report.Action.WindowFrom,
			NokkelTom:               report.Action.WindowTo,
		},
		Total: AvstemmingTotal{
			TotalAntall: report.Total.Count,
			TotalBelop:  report.Total.Sum,
			Fortegn:     string(report.Total.Sign),
		},
		Grunnlag: AvstemmingGrunnlag{
			GodkjentAntall:  report.Approved.Count,
			GodkjentBelop:   report.Approved.Sum,
			GodkjentFortegn: string(report.Approved.Sign),
			VarselAntall:    report.ApprovedWarn.Count,
			VarselBelop:     report.ApprovedWarn.Sum,
			VarselFortegn:   string(report.ApprovedWarn.Sign),
			AvvistAntall:    report.Rejected.Count,
			AvvistBelop:     report.Rejected.Sum,
			AvvistFortegn:   string(report.Rejected.Sign),
			MangelAntall:    report.Missing.Count,
			MangelBelop:     report.Missing.Sum,
			MangelFortegn:   string(report.Missing.Sign),
		},
	}
	for _, d := range report.Details {
		msg.Detaljer = append(msg.Detaljer, AvstemmingDetalj{
			BatchID:   d.BatchID,
			CaseID:    d.CaseID,
			Status:    string(d.Status),
			Belop:     d.Amount,
			Tidspunkt: d.SentAt,
		})
	}
	return msg
}

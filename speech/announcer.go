package speech

import (
	assist "github.com/bt-bridge/vision-assist"
	"github.com/bt-bridge/vision-assist/shared"
)

// PrinterAnnouncer shows announcements on the printer instead of speaking
// them.
type PrinterAnnouncer struct {
	logger  shared.LoggerAdapter
	printer *shared.Printer
}

var _ assist.Announcer = (*PrinterAnnouncer)(nil)

func NewPrinterAnnouncer(logger shared.LoggerAdapter, printer *shared.Printer) (*PrinterAnnouncer, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if printer == nil {
		return nil, shared.ErrNoPrinter
	}
	return &PrinterAnnouncer{logger: logger, printer: printer}, nil
}

func (a *PrinterAnnouncer) Announce(text string) {
	if err := a.printer.Writeln("🔔 "+text, 1); err != nil {
		a.logger.Error("printing announcement", err)
	}
}

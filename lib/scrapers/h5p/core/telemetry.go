package core

import (
	"h5p-downloader/lib/restyutil"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/h5p/core")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput enables full HTTP exchange dumps for clients
// created after this call. Debug use only.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

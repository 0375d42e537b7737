package restyutil

import (
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// DumpResponses attaches a middleware that writes the full request/response
// exchange of every call to `output`, one file per message. Dumps are only
// taken when debug logging is enabled, they contain credentials and session
// cookies in plain text. `output` can be nil, in which case this is a no-op.
func DumpResponses(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ctx := res.Request.Context()
		if !slog.Default().Enabled(ctx, slog.LevelDebug) {
			return nil
		}
		messageId := strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
		output.Write(messageId, FormatHttpMessage(res))
		slog.DebugContext(
			ctx, "dumped http exchange",
			"method", res.Request.Method,
			"url", res.Request.URL,
			"message_id", messageId,
		)
		return nil
	})
}

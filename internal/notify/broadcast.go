package notify

import (
	"go.uber.org/zap"
)

// Result counts broadcast outcomes
type Result struct {
	Sent   int
	Failed int
}

// Total returns the number of attempted deliveries
func (r Result) Total() int {
	return r.Sent + r.Failed
}

// Broadcast sends msg to every recipient. A failed delivery is logged and
// counted, the rest of the batch still goes out.
func Broadcast(n Notifier, recipients []int64, msg Message, logger *zap.Logger) Result {
	var res Result
	for _, id := range recipients {
		if _, err := n.Send(To(id), msg); err != nil {
			logger.Warn("Broadcast delivery failed",
				zap.Int64("user_id", id),
				zap.Error(err),
			)
			res.Failed++
			continue
		}
		res.Sent++
	}

	logger.Info("Broadcast finished",
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
	)
	return res
}

package publishers

// Logger is the Obj-style logging surface shared with the rest of the module.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// logSendFailure records a failed delivery under "publisher_<type>_error".
func logSendFailure(log Logger, typ, id string, err error) {
	log.ErrorObj(typ+" publisher send failed", "publisher_"+typ+"_error", map[string]any{
		"publisher_id": id,
		"error":        err.Error(),
	})
}

// logDelivery records a delivered event under "publisher_<type>_delivery".
func logDelivery(log Logger, typ, id string, evt Event, extra map[string]any) {
	fields := map[string]any{
		"publisher_id": id,
		"dataset_id":   evt.DatasetID,
	}
	for k, v := range extra {
		fields[k] = v
	}
	log.DebugObj(typ+" publisher delivered event", "publisher_"+typ+"_delivery", fields)
}

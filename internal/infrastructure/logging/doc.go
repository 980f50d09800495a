// Package logging wraps log/slog for the Govee BLE controller.
//
// Every record carries service and version attributes; output is JSON
// for deployments (parsed by the journald/Loki pipeline) or text for a
// terminal. Level, format and destination come from the logging section
// of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// The Logger embeds *slog.Logger, so a *logging.Logger plugs straight
// into the per-package Logger interfaces (light, bridge, ble) without
// adapters. Child loggers scope a component:
//
//	log := logging.New(cfg.Logging, version)
//	bleLog := log.With("component", "ble")
//	bleLog.Info("adapter enabled", "adapter", "hci0")
//
// Do not log MQTT credentials or InfluxDB tokens. Light addresses are
// fine; they appear in every state transition record.
package logging

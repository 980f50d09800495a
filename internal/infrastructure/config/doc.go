// Package config loads and validates the controller configuration.
//
// Configuration is read once at startup: built-in defaults, then the
// YAML file, then GOVEEBLE_* environment overrides, then validation.
// The lights section is the device inventory; a light entry needs at
// least a BLE address and a model, everything else has defaults.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, lc := range cfg.Lights {
//	    fmt.Println(lc.EffectiveID(), lc.Address)
//	}
//
// MQTT passwords and InfluxDB tokens belong in environment variables,
// not in the file; keep the file at 0600 either way.
package config

// Package config loads semlink configuration.
//
// A Loader starts from Default, merges each layer file (JSON or YAML) on top
// of the previous result, then applies SEMLINK_* environment overrides:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.json")
//	loader.AddLayer("config/production.yaml") // overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// Maps merge key by key; lists such as resolvers are replaced by the later
// layer. Context and schema paths are relative to the file declaring them.
//
// Recognized environment overrides:
//
//	SEMLINK_LOG_LEVEL, SEMLINK_LOG_FORMAT
//	SEMLINK_METRICS_ENABLED, SEMLINK_METRICS_PORT
//	SEMLINK_CACHE_ENABLED, SEMLINK_CACHE_MAX_SIZE
//	SEMLINK_REGISTRY_CONCURRENCY
//
// Resolver options are backend specific and untyped; backends read them with
// GetString, GetInt, GetBool, GetDuration and friends, which never panic on
// unexpected types.
//
// SafeConfig guards a Config for concurrent readers. Get returns a deep copy,
// so callers may modify the result freely.
package config

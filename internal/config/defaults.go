package config

// Handler, formatter, and rotation type names.
const (
	HandlerStream       = "stream"
	HandlerRotatingFile = "rotating_file"

	FormatterColor = "color"
	FormatterJSON  = "json"

	RotationNumbered    = "numbered"
	RotationTimestamped = "timestamped"
)

const (
	defaultLevel          = "INFO"
	defaultQueueCapacity  = 10000
	defaultStream         = "stdout"
	defaultColorMode      = "auto"
	defaultCollision      = "rename"
	defaultUserConfigPath = "~/.config/pyproj/logging.toml"
	projectConfigName     = "logging.toml"
)

// Default returns a Config populated with repository defaults. It defines
// no sinks; the embedded sample configuration provides the standard
// topology.
func Default() Config {
	return Config{
		DefaultLevel: defaultLevel,
		Queue: Queue{
			Capacity: defaultQueueCapacity,
		},
	}
}

package constants

const (

	// ServiceName is the name of the sync tool
	ServiceName = "scoutnet2airkey"

	// DefaultConfigFile is the configuration file read when --config is not given
	DefaultConfigFile = "scoutnet2airkey.yaml"

	// ScoutnetAPIKeyEnvKey overrides the Scoutnet API key from the config file
	ScoutnetAPIKeyEnvKey = "SCOUTNET_API_KEY"

	// AirkeyClientSecretEnvKey overrides the Airkey OAuth client secret from the config file
	AirkeyClientSecretEnvKey = "AIRKEY_CLIENT_SECRET"
)

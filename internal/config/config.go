package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379"   validate:"min=1000,max=65535"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"auction_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"auction_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"auction_db"`

	// Platform admin policy. The owner address gates fee changes, pausing
	// and emergency stops.
	OwnerAddress   string `env:"OWNER_ADDRESS" envDefault:"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266" validate:"required"`
	PlatformFeeBps uint32 `env:"PLATFORM_FEE_BPS" envDefault:"250" validate:"max=1000"`

	DefaultAuctionDuration int64  `env:"DEFAULT_AUCTION_DURATION" envDefault:"86400"   validate:"min=1"`
	MaxAuctionDuration     int64  `env:"MAX_AUCTION_DURATION"     envDefault:"2592000" validate:"min=1"`
	MinBidIncrement        string `env:"MIN_BID_INCREMENT"        envDefault:"1000000000000000"` // wei

	// Hex-encoded 32-byte key for sealed values; a random boot key is used
	// when empty, in which case sealed values don't survive restarts.
	SealedKeyHex string `env:"SEALED_KEY_HEX" envDefault:""`

	// Deployment-address bookkeeping file served by the API.
	DeploymentsFile string `env:"DEPLOYMENTS_FILE" envDefault:"deployments.json"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"3001" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

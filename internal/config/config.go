package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"loanledger/pkg/id"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	MySQLHost string `env:"MYSQL_HOST" envDefault:"mysql"`
	MySQLPort string `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLDB   string `env:"MYSQL_DB" envDefault:"loanledger"`
	MySQLUser string `env:"MYSQL_USER" envDefault:"loanledger"`
	MySQLPass string `env:"MYSQL_PASS" envDefault:"loanledger"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"redis:6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	IdempTTLSecs int    `env:"IDEMPOTENCY_TTL_SECONDS" envDefault:"300"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	// FactoryDeployer becomes owner and worker of a freshly deployed factory.
	FactoryDeployer string `env:"FACTORY_DEPLOYER"`
	// FactoryAddress defaults to the creation address of the deployer's
	// first contract.
	FactoryAddress string `env:"FACTORY_ADDRESS"`

	EventStream        string `env:"EVENT_STREAM" envDefault:"loanledger:events"`
	EnforcePaymentTime bool   `env:"ENFORCE_PAYMENT_TIME" envDefault:"false"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if _, err := strconv.ParseUint(c.AppPort, 10, 16); err != nil {
		return fmt.Errorf("invalid APP_PORT %q", c.AppPort)
	}
	if !common.IsHexAddress(c.FactoryDeployer) || common.HexToAddress(c.FactoryDeployer) == (common.Address{}) {
		return fmt.Errorf("invalid FACTORY_DEPLOYER %q", c.FactoryDeployer)
	}
	if c.FactoryAddress != "" && !common.IsHexAddress(c.FactoryAddress) {
		return fmt.Errorf("invalid FACTORY_ADDRESS %q", c.FactoryAddress)
	}
	if c.IdempTTLSecs <= 0 {
		return fmt.Errorf("invalid IDEMPOTENCY_TTL_SECONDS %d", c.IdempTTLSecs)
	}
	return nil
}

func (c *Config) Deployer() common.Address { return common.HexToAddress(c.FactoryDeployer) }

func (c *Config) Factory() common.Address {
	if c.FactoryAddress != "" {
		return common.HexToAddress(c.FactoryAddress)
	}
	return id.ContractAddress(c.Deployer(), 0)
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

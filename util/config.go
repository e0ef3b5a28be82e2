package util

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"
)

// ENV_PREFIX prefixes every environment override, e.g. BAGEL_OUTPUT.
const ENV_PREFIX = "BAGEL_"

func ReadJSONConfig(filename string, config interface{}) error {
	configData, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	err = json.Unmarshal(configData, config)
	if err != nil {
		return err
	}
	return nil
}

func WriteJSONConfig(filename string, config interface{}) error {
	configData, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, configData, 0644)
}

// ReadConfig reads a JSON or YAML config depending on the file extension.
func ReadConfig(filename string, config interface{}) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		configData, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(configData, config); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
		return nil
	default:
		if err := ReadJSONConfig(filename, config); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
		return nil
	}
}

// LoadEnv loads a .env file if one is present. A missing file is not an error.
func LoadEnv(filenames ...string) {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, filename := range filenames {
		if _, err := os.Stat(filename); err != nil {
			continue
		}
		if err := godotenv.Load(filename); err != nil {
			log.Printf("LoadEnv: error loading env file %v: %v\n", filename, err)
		}
	}
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(ENV_PREFIX + key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(ENV_PREFIX + key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(ENV_PREFIX + key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(ENV_PREFIX + key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func CheckErr(err error, errfmsg string, fargs ...interface{}) {
	if err != nil {
		fmt.Fprintf(os.Stderr, errfmsg, fargs...)
		os.Exit(1)
	}
}

// IPEmptyPortOnly keeps the host of addr and lets the OS pick the port.
func IPEmptyPortOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return ":0"
	}
	return net.JoinHostPort(host, "0")
}

// DialGRPC opens a plaintext client connection; peers live on a private network.
func DialGRPC(remoteAddr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		opts...,
	)
	return grpc.Dial(remoteAddr, opts...)
}

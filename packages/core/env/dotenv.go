package env

import (
	"fmt"

	"github.com/joho/godotenv"
)

// DotEnvFileName is the dotenv file looked up next to request files.
const DotEnvFileName = ".env"

// LoadDotEnv parses a .env file without exporting it to the process environment.
func LoadDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read env file: %w", err)
	}
	return vars, nil
}

// LoadDotEnvFor reads the .env file nearest to httpFile. A missing file
// yields an empty map.
func LoadDotEnvFor(httpFile string) (map[string]string, error) {
	path, ok := FindEnvironmentFile(httpFile, DotEnvFileName)
	if !ok {
		return map[string]string{}, nil
	}
	return LoadDotEnv(path)
}

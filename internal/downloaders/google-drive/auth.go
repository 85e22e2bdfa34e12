package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const driveReadonlyScope = "https://www.googleapis.com/auth/drive.readonly"

// getAccessTokenFromCredentials returns a usable access token, reusing the
// cached token when possible and refreshing or exchanging a code otherwise.
func getAccessTokenFromCredentials(ctx context.Context, credentialsFile, tokenFile string, in io.Reader, out io.Writer) (string, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", fmt.Errorf("unable to read credentials file: %w", err)
	}
	log.Debug().Str("op", "google-drive/auth").Msgf("using credentials from %s", credentialsFile)
	config, err := google.ConfigFromJSON(b, driveReadonlyScope)
	if err != nil {
		return "", fmt.Errorf("unable to parse client secret file: %w", err)
	}

	token, err := getOAuthToken(ctx, config, tokenFile, in, out)
	if err != nil {
		return "", fmt.Errorf("unable to get OAuth token: %w", err)
	}
	if !token.Valid() && token.RefreshToken == "" {
		return "", fmt.Errorf("OAuth token is expired and cannot be refreshed")
	}
	fresh, err := config.TokenSource(ctx, token).Token()
	if err != nil {
		return "", fmt.Errorf("unable to refresh token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		log.Debug().Str("op", "google-drive/auth").Msg("token refreshed")
		if err := saveToken(tokenFile, fresh); err != nil {
			log.Warn().Str("op", "google-drive/auth").Msgf("unable to save refreshed token: %v", err)
		}
	}
	return fresh.AccessToken, nil
}

func getOAuthToken(ctx context.Context, config *oauth2.Config, tokenFile string, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	token, err := tokenFromFile(tokenFile)
	if err == nil {
		log.Debug().Str("op", "google-drive/auth").Msg("existing token retrieved")
		return token, nil
	}
	log.Debug().Str("op", "google-drive/auth").Msg("no existing token retrieved, get new one with OAuth flow")
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "\nVisit this URL to get the authorization code:\n%s\n\nAfter authorizing, enter the authorization code: ", authURL)
	var authCode string
	if _, err := fmt.Fscan(in, &authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}
	log.Debug().Str("op", "google-drive/auth").Msg("exchanging scanned auth code for token")
	token, err = config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange auth code for token: %w", err)
	}
	if err := saveToken(tokenFile, token); err != nil {
		log.Warn().Str("op", "google-drive/auth").Msgf("unable to save new token: %v", err)
	}
	return token, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

func saveToken(file string, token *oauth2.Token) error {
	dir := filepath.Dir(file)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}
	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to encode token: %w", err)
	}
	return nil
}

package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
)

const (
	azureManagementURL = "https://management.azure.com"
	azureLoginURL      = "https://login.microsoftonline.com"
	azureScope         = "https://management.azure.com/.default"
	azureIPAPIVersion  = "2021-02-01"
	azureSubAPIVersion = "2020-01-01"

	azureRequestTimeout = 30 * time.Second
)

// AzureCredential is one tenant entry in the credentials JSON list.
type AzureCredential struct {
	ClientID     string `json:"AZURE_CLIENT_ID"`
	ClientSecret string `json:"AZURE_CLIENT_SECRET"`
	TenantID     string `json:"AZURE_TENANT_ID"`
}

// AzureResolver lists public IP addresses across every subscription visible
// to each configured service principal, using the Management REST API.
type AzureResolver struct {
	credentials   []AzureCredential
	managementURL string
	loginURL      string
	httpClient    *http.Client
	logger        *logging.Logger
}

// NewAzureResolver creates a resolver from a JSON credentials list.
func NewAzureResolver(credentialsJSON string) (*AzureResolver, error) {
	var creds []AzureCredential
	if err := json.Unmarshal([]byte(credentialsJSON), &creds); err != nil {
		return nil, errors.WrapResolveError(errors.CodeConfiguration,
			"invalid Azure credentials JSON", "azure", err)
	}
	return &AzureResolver{
		credentials:   creds,
		managementURL: azureManagementURL,
		loginURL:      azureLoginURL,
		httpClient:    &http.Client{Timeout: azureRequestTimeout},
		logger:        logging.Default().WithComponent("targets.azure"),
	}, nil
}

// Resolve fetches public IPs for every tenant. A failing tenant is logged
// and skipped.
func (r *AzureResolver) Resolve(ctx context.Context) ([]string, error) {
	var addresses []string

	for _, cred := range r.credentials {
		ips, err := r.resolveTenant(ctx, cred)
		if err != nil {
			r.logger.Error("Failed to fetch Azure public IPs",
				"tenant", cred.TenantID, "error", err)
			continue
		}
		addresses = append(addresses, ips...)
	}

	return Normalize(addresses), nil
}

// resolveTenant acquires a token, lists subscriptions, and collects public
// IPs from each.
func (r *AzureResolver) resolveTenant(ctx context.Context, cred AzureCredential) ([]string, error) {
	token, err := r.acquireToken(ctx, cred)
	if err != nil {
		return nil, err
	}

	subscriptions, err := r.listSubscriptions(ctx, token)
	if err != nil {
		return nil, err
	}

	var ips []string
	for _, subscription := range subscriptions {
		subIPs, err := r.listPublicIPs(ctx, token, subscription)
		if err != nil {
			return nil, err
		}
		ips = append(ips, subIPs...)
	}
	return ips, nil
}

// acquireToken performs the client-credentials grant against the tenant.
func (r *AzureResolver) acquireToken(ctx context.Context, cred AzureCredential) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {cred.ClientID},
		"client_secret": {cred.ClientSecret},
		"scope":         {azureScope},
	}

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", r.loginURL, cred.TenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return payload.AccessToken, nil
}

// listSubscriptions returns the subscription IDs visible to the token.
func (r *AzureResolver) listSubscriptions(ctx context.Context, token string) ([]string, error) {
	listURL := fmt.Sprintf("%s/subscriptions?api-version=%s", r.managementURL, azureSubAPIVersion)

	var payload struct {
		Value []struct {
			SubscriptionID string `json:"subscriptionId"`
		} `json:"value"`
	}
	if err := r.getJSON(ctx, token, listURL, &payload); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(payload.Value))
	for _, sub := range payload.Value {
		ids = append(ids, sub.SubscriptionID)
	}
	return ids, nil
}

// listPublicIPs pages through a subscription's public IP resources.
func (r *AzureResolver) listPublicIPs(ctx context.Context, token, subscription string) ([]string, error) {
	nextURL := fmt.Sprintf(
		"%s/subscriptions/%s/providers/Microsoft.Network/publicIPAddresses?api-version=%s",
		r.managementURL, subscription, azureIPAPIVersion)

	var ips []string
	for nextURL != "" {
		var payload struct {
			Value []struct {
				Properties struct {
					IPAddress string `json:"ipAddress"`
				} `json:"properties"`
			} `json:"value"`
			NextLink string `json:"nextLink"`
		}
		if err := r.getJSON(ctx, token, nextURL, &payload); err != nil {
			return nil, err
		}
		for _, resource := range payload.Value {
			if resource.Properties.IPAddress != "" {
				ips = append(ips, resource.Properties.IPAddress)
			}
		}
		nextURL = payload.NextLink
	}
	return ips, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
func (r *AzureResolver) getJSON(ctx context.Context, token, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request to %s returned HTTP %d", rawURL, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

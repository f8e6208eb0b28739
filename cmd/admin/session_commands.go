package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/petjo-admin/internal/session"
	"go.uber.org/zap"
)

var errSignedOut = errors.New("status.signed_out")

// sessionRuntime bundles a manager with the resources backing it.
type sessionRuntime struct {
	manager *session.Manager
	logger  *zap.Logger
	close   func()
}

func openSessionRuntime(ctx context.Context, configuration SessionConfig, navigator session.Navigator, metrics session.MetricsRecorder) (*sessionRuntime, error) {
	logger, loggerErr := buildLogger(viper.GetString("log_level"))
	if loggerErr != nil {
		return nil, loggerErr
	}
	store, closeStore, storeErr := openTokenStore(ctx, configuration)
	if storeErr != nil {
		_ = logger.Sync()
		return nil, storeErr
	}
	identityClient, clientErr := session.NewHTTPIdentityClient(configuration.APIBaseURL, nil)
	if clientErr != nil {
		closeStore()
		_ = logger.Sync()
		return nil, clientErr
	}
	manager, managerErr := session.New(ctx, session.Config{
		Store:         store,
		Client:        identityClient,
		State:         session.NewState(),
		Logger:        logger,
		Metrics:       metrics,
		Clock:         session.NewSystemClock(),
		Navigator:     navigator,
		LoginTimeout:  configuration.LoginTimeout,
		RevokeTimeout: configuration.RevokeTimeout,
	})
	if managerErr != nil {
		closeStore()
		_ = logger.Sync()
		return nil, managerErr
	}
	return &sessionRuntime{
		manager: manager,
		logger:  logger,
		close: func() {
			closeStore()
			_ = logger.Sync()
		},
	}, nil
}

func cliNavigator(command *cobra.Command) session.Navigator {
	return session.NavigatorFunc(func(string) {
		fmt.Fprintln(command.ErrOrStderr(), "session ended; run `petjo-admin login` to sign in again")
	})
}

func runLogin(command *cobra.Command, arguments []string) error {
	configuration, err := sessionConfigFromCommand(command)
	if err != nil {
		return err
	}
	credentials, err := readCredentials(command.InOrStdin())
	if err != nil {
		return err
	}
	runtime, err := openSessionRuntime(command.Context(), configuration, cliNavigator(command), nil)
	if err != nil {
		return err
	}
	defer runtime.close()

	if loginErr := runtime.manager.Login(command.Context(), credentials); loginErr != nil {
		var failure *session.LoginFailure
		if errors.As(loginErr, &failure) && failure.Message != "" {
			return fmt.Errorf("login: %s: %w", failure.Message, loginErr)
		}
		return fmt.Errorf("login: %w", loginErr)
	}
	identity := runtime.manager.CurrentIdentity()
	fmt.Fprintf(command.OutOrStdout(), "signed in as %s until %s\n", identity.Subject(), identity.ExpiresAt().Format(time.RFC3339))
	return nil
}

func readCredentials(input io.Reader) (session.Credentials, error) {
	credentials := session.Credentials{
		Email:    strings.TrimSpace(viper.GetString("email")),
		Password: viper.GetString("password"),
	}
	if credentials.Password == "" && input != nil {
		line, readErr := bufio.NewReader(input).ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return session.Credentials{}, fmt.Errorf("login.read_password: %w", readErr)
		}
		credentials.Password = strings.TrimRight(line, "\r\n")
	}
	return credentials, nil
}

func runLogout(command *cobra.Command, arguments []string) error {
	configuration, err := sessionConfigFromCommand(command)
	if err != nil {
		return err
	}
	runtime, err := openSessionRuntime(command.Context(), configuration, nil, nil)
	if err != nil {
		return err
	}
	defer runtime.close()

	runtime.manager.Logout(command.Context())
	fmt.Fprintln(command.OutOrStdout(), "signed out")
	return nil
}

func runWhoAmI(command *cobra.Command, arguments []string) error {
	configuration, err := sessionConfigFromCommand(command)
	if err != nil {
		return err
	}
	runtime, err := openSessionRuntime(command.Context(), configuration, cliNavigator(command), nil)
	if err != nil {
		return err
	}
	defer runtime.close()

	if !runtime.manager.IsAuthenticated(command.Context()) {
		return fmt.Errorf("whoami: %w", session.ErrNotAuthenticated)
	}
	identity := runtime.manager.CurrentIdentity()
	output := command.OutOrStdout()
	fmt.Fprintf(output, "subject:  %s\n", identity.Subject())
	fmt.Fprintf(output, "initials: %s\n", identity.Initials())
	fmt.Fprintf(output, "expires:  %s\n", identity.ExpiresAt().Format(time.RFC3339))
	if email, ok := identity["user_email"].(string); ok && email != "" {
		fmt.Fprintf(output, "email:    %s\n", email)
	}
	return nil
}

func runStatus(command *cobra.Command, arguments []string) error {
	configuration, err := sessionConfigFromCommand(command)
	if err != nil {
		return err
	}
	runtime, err := openSessionRuntime(command.Context(), configuration, nil, nil)
	if err != nil {
		return err
	}
	defer runtime.close()

	if !runtime.manager.IsAuthenticated(command.Context()) {
		fmt.Fprintf(command.OutOrStdout(), "profile %s: signed out\n", configuration.Profile)
		return errSignedOut
	}
	identity := runtime.manager.CurrentIdentity()
	fmt.Fprintf(command.OutOrStdout(), "profile %s: signed in as %s until %s\n", configuration.Profile, identity.Subject(), identity.ExpiresAt().Format(time.RFC3339))
	return nil
}

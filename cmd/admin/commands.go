package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cobranza-bot/internal/app"
	"cobranza-bot/internal/db"
	"cobranza-bot/internal/domain"
)

var printSchema bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica el esquema SQL embebido",
	RunE: func(cmd *cobra.Command, args []string) error {
		if printSchema {
			fmt.Fprint(cmd.OutOrStdout(), db.Schema())
			return nil
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			if err := db.Migrate(cmd.Context(), a.Pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		})
	},
}

var (
	userEmail    string
	userPassword string
	userAdmin    bool
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Crea un operador o un admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userPassword == "" {
			userPassword = os.Getenv("ADMIN_PASSWORD")
		}
		role := domain.RoleOperator
		if userAdmin {
			role = domain.RoleAdmin
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			user, err := a.Users.Register(cmd.Context(), userEmail, userPassword, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d created (%s, %s)\n", user.ID, user.Email, user.Role)
			return nil
		})
	},
}

var (
	launchUserID     int64
	launchCampaignID int64
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Lanza una campaña como lo haría la consola",
	RunE: func(cmd *cobra.Command, args []string) error {
		if launchUserID <= 0 || launchCampaignID <= 0 {
			return errors.New("--user-id y --campaign-id son obligatorios")
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			report, err := a.Campaigns.Launch(cmd.Context(), launchUserID, launchCampaignID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		})
	},
}

var (
	testTo   string
	testBody string
)

var sendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "Envía un mensaje de WhatsApp con el proveedor configurado",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(testTo) == "" {
			return errors.New("--to es obligatorio")
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			id, err := a.Sender.Send(cmd.Context(), testTo, testBody)
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent via %s: %s\n", a.Config.WhatsAppProvider, id)
			return nil
		})
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&printSchema, "print", false, "imprimir el SQL sin aplicarlo")

	createUserCmd.Flags().StringVar(&userEmail, "email", "", "email del usuario")
	createUserCmd.Flags().StringVar(&userPassword, "password", "", "contraseña (o ADMIN_PASSWORD)")
	createUserCmd.Flags().BoolVar(&userAdmin, "admin", false, "crear con rol admin")
	_ = createUserCmd.MarkFlagRequired("email")

	launchCmd.Flags().Int64Var(&launchUserID, "user-id", 0, "dueño de la campaña")
	launchCmd.Flags().Int64Var(&launchCampaignID, "campaign-id", 0, "campaña a lanzar")

	sendTestCmd.Flags().StringVar(&testTo, "to", "", "número destino, por ejemplo +5491122334455")
	sendTestCmd.Flags().StringVar(&testBody, "body", "Mensaje de prueba del bot de cobranzas", "texto a enviar")
}

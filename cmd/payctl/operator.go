package main

import (
	"errors"
	"fmt"

	"payhub/internal/dto"
	"payhub/internal/repository"
	"payhub/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

func operatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage back-office operator accounts",
	}
	cmd.AddCommand(operatorCreateCmd())
	return cmd
}

func operatorCreateCmd() *cobra.Command {
	var req dto.CreateOperatorRequest
	var franchiseID int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		Long: `Create an operator account; the first admin is usually created this way.

Examples:
  payctl operator create --email admin@domeo.ru --name Admin --password s3cret-pass --role admin
  payctl operator create --email f12@domeo.ru --name "Franchise 12" --password s3cret-pass --role franchise --franchise 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("franchise") {
				req.FranchiseID = &franchiseID
			}
			if err := validator.New().Struct(req); err != nil {
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) && len(verrs) > 0 {
					return fmt.Errorf("invalid %s: %s", verrs[0].Field(), verrs[0].Tag())
				}
				return err
			}

			cfg, db, err := connect()
			if err != nil {
				return err
			}
			auth := service.NewAuthService(repository.NewOperatorRepository(db), cfg)
			op, err := auth.CreateOperator(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "operator %d created: %s (%s)\n", op.ID, op.Email, op.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&req.Role, "role", "accountant", "admin | accountant | franchise")
	cmd.Flags().Int64Var(&franchiseID, "franchise", 0, "franchise id (role franchise)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

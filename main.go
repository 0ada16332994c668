package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"segloss/loss"
)

type computeOptions struct {
	config string
	loss   string
	output string
	target string
	save   string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "segloss",
		Short:         "Evaluate segmentation training losses on saved tensors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newComputeCmd(), newOneHotCmd(), newListCmd())
	return root
}

func newComputeCmd() *cobra.Command {
	opts := &computeOptions{}
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a loss between an output and a target .npy tensor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompute(cmd.OutOrStdout(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.config, "config", "", "YAML configuration (weights, model, loss_function, scaling_factor)")
	flags.StringVar(&opts.loss, "loss", "", "loss name; defaults to the config's loss_function")
	flags.StringVar(&opts.output, "output", "", "model output tensor (.npy)")
	flags.StringVar(&opts.target, "target", "", "ground truth tensor (.npy)")
	flags.StringVar(&opts.save, "save", "", "write the loss tensor to this .npy file")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func runCompute(w io.Writer, opts *computeOptions) error {
	var params *loss.Params
	if opts.config != "" {
		p, err := loss.LoadParams(opts.config)
		if err != nil {
			return err
		}
		params = p
	}

	name := opts.loss
	if name == "" && params != nil {
		name = params.LossFunction.Name
	}
	if name == "" {
		return errors.New("no loss selected: pass --loss or set loss_function in --config")
	}
	fn, err := loss.Lookup(name)
	if err != nil {
		return err
	}

	out, err := loadTensor(opts.output)
	if err != nil {
		return err
	}
	target, err := loadTensor(opts.target)
	if err != nil {
		return err
	}
	log.Printf("%s: output %v %v, target %v %v", name, out.Shape(), out.Dtype(), target.Shape(), target.Dtype())

	res, err := fn(out, target, params)
	if err != nil {
		return errors.WithMessage(err, name)
	}
	if v, err := loss.Scalar(res); err == nil {
		fmt.Fprintf(w, "%s = %g\n", name, v)
	} else {
		fmt.Fprintf(w, "%s: unreduced loss of shape %v\n", name, res.Shape())
	}
	if opts.save != "" {
		if err := saveTensor(opts.save, res); err != nil {
			return err
		}
		log.Printf("saved %s", opts.save)
	}
	return nil
}

func newOneHotCmd() *cobra.Command {
	var config, target, save string
	cmd := &cobra.Command{
		Use:   "onehot",
		Short: "One-hot encode a label map against the config's class_list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := loss.LoadParams(config)
			if err != nil {
				return err
			}
			labels, err := loadTensor(target)
			if err != nil {
				return err
			}
			enc, err := loss.OneHot(labels, params.Model.ClassList)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "encoded %v into %v\n", labels.Shape(), enc.Shape())
			return saveTensor(save, enc)
		},
	}
	cmd.Flags().StringVar(&config, "config", "", "YAML configuration with model.class_list")
	cmd.Flags().StringVar(&target, "target", "", "label map (.npy)")
	cmd.Flags().StringVar(&save, "save", "", "destination for the encoded tensor (.npy)")
	for _, f := range []string{"config", "target", "save"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered losses",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range loss.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("segloss: ")
	if err := newRootCmd().Execute(); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

// Recursive descent parser
// https://en.wikipedia.org/wiki/Recursive_descent_parser

//	A Recursive descent parser is a top-down parser because it starts from the top
//
// grammar rule and works its way down in to the nested sub-experessions before reaching
// the leaves of the syntax tree (terminal rules)
package parser

import (
	"fmt"
	"esta/ast"
	"esta/token"
)

var comparisonTokenTypes = []token.TokenType{
	token.LARGER,
	token.LARGER_EQUAL,
	token.LESS,
	token.LESS_EQUAL,
}

var equalityTokenTypes = []token.TokenType{
	token.NOT_EQUAL,
	token.EQUAL_EQUAL,
}

var termTokenTypes = []token.TokenType{
	token.SUB,
	token.ADD,
}

var factorExpressionTypes = []token.TokenType{
	token.MULT,
	token.DIV,
	token.MOD,
}

var unaryExpressionTypes = []token.TokenType{
	token.BANG,
	token.SUB,
}

type Parser struct {
	tokens   []token.Token
	position int
}

// NOTE: The parsers position is always one unit ahead of the
// current token

// Initializes and returns a new Parser instance.
//
// Parameters:
//   - tokens: []token.Token
//     The tokens created by the lexer.
//
// Returns:
//   - *Parser: A pointer to a newly created Parser instance.
func Make(tokens []token.Token) *Parser {
	return &Parser{
		tokens:   tokens,
		position: 0,
	}
}

// Print prints the AST as prettified JSON to standard output.
func (parser *Parser) Print(statements []ast.Stmt) {
	_, err := PrintASTJSON(statements)
	if err != nil {
		fmt.Println("error producing AST JSON:", err)
	}
}

// PrintToFile writes the AST for the provided statements to a .json file at the given path.
func (parser *Parser) PrintToFile(statements []ast.Stmt, path string) error {
	return WriteASTJSONToFile(statements, path)
}

// Peeks the token at the parser's current position,
// without advancing the parser's position.
func (parser *Parser) peek() token.Token {
	return parser.tokens[parser.position]
}

// Retrieves the token at the parser's previous position
// (position -1)
func (parser *Parser) previous() token.Token {
	return parser.tokens[parser.position-1]
}

// Increments the parser's position by one unit and
// consumes the current token
func (parser *Parser) advance() token.Token {
	if !parser.isFinished() {
		parser.position++
	}
	return parser.previous()
}

// Determines of the parser has finished scanning all the tokens.
func (parser *Parser) isFinished() bool {
	tok := parser.peek()
	return tok.TokenType == token.EOF
}

// Determines if the provided tokenType matches the TokenType
// at the parser's current position
func (parser *Parser) checkType(tokeType token.TokenType) bool {
	if parser.isFinished() {
		return false
	}
	tok := parser.peek()
	return tok.TokenType == tokeType
}

// Determines if the TokenType at the current
// position matches any of the provided tokenTypes. If a match is
// found the parser increments its position and consumes the
// current token
func (parser *Parser) isMatch(tokenTypes []token.TokenType) bool {
	for i := range tokenTypes {
		tokenType := tokenTypes[i]

		if parser.checkType(tokenType) {
			parser.advance()
			return true
		}
	}
	return false
}

// Parse parses the entire token stream into a slice of Stmt (statement) nodes,
// continuing until the end of input. Errors during parsing are collected
// but parsing continues to find additional errors where possible.
//
// Returns:
//   - []Stmt: the successfully parsed statements.
//   - []error: all errors that occurred during parsing.
func (parser *Parser) Parse() ([]ast.Stmt, []error) {
	statements := []ast.Stmt{}
	errors := []error{}

	for {
		if parser.isFinished() {
			break
		}
		statement, err := parser.declaration()
		if err != nil {
			errors = append(errors, err)
			if !parser.isFinished() {
				parser.position++
			}
			continue
		}
		statements = append(statements, statement)
	}

	return statements, errors
}

// declaration parses a top-level declaration: a function, a struct, a
// variable, or (falling through) an ordinary statement.
func (parser *Parser) declaration() (ast.Stmt, error) {
	if parser.isMatch([]token.TokenType{token.FUNC}) {
		return parser.funDeclaration()
	}
	if parser.isMatch([]token.TokenType{token.STRUCT}) {
		return parser.structDeclaration()
	}
	if parser.isMatch([]token.TokenType{token.VAR}) {
		return parser.variableDeclaration()
	}
	return parser.statement()
}

// funDeclaration parses "fn name(params) { body }".
func (parser *Parser) funDeclaration() (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected function name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LPA, "Expected '(' after function name"); err != nil {
		return nil, err
	}

	var params []token.Token
	if !parser.checkType(token.RPA) {
		for {
			param, err := parser.consume(token.IDENTIFIER, "Expected parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after parameters"); err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' before function body"); err != nil {
		return nil, err
	}
	statements, err := parser.block()
	if err != nil {
		return nil, err
	}

	return ast.FunDecl{
		Name:   name,
		Params: params,
		Body:   ast.Block{Statements: statements, IsScope: false},
	}, nil
}

// structDeclaration parses "struct name { field, field, ... }".
func (parser *Parser) structDeclaration() (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected struct name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' after struct name"); err != nil {
		return nil, err
	}

	var fields []token.Token
	if !parser.checkType(token.RCUR) {
		for {
			field, err := parser.consume(token.IDENTIFIER, "Expected field name")
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RCUR, "Expected '}' after struct fields"); err != nil {
		return nil, err
	}

	return ast.Struct{Name: name, Fields: fields}, nil
}

// variableDeclaration parses a variable declaration statement.
// It expects an identifier token for the variable name
// followed by an optional '=' and an initializer expression.
func (parser *Parser) variableDeclaration() (ast.Stmt, error) {
	tok, consumeError := parser.consume(token.IDENTIFIER, "Expected variable name")
	if consumeError != nil {
		return nil, consumeError
	}

	var initialiser ast.Expression
	if parser.isMatch([]token.TokenType{token.ASSIGN}) {
		var err error
		initialiser, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := parser.consume(token.SEMICOLON, "Expected ';' after variable declaration"); err != nil {
		return nil, err
	}

	return ast.Declaration{
		Name:        tok,
		Initializer: initialiser,
	}, nil
}

// statement parses a single statement: a block, a conditional, a loop,
// a return, or (falling through) an assignment or bare expression.
func (parser *Parser) statement() (ast.Stmt, error) {
	if parser.isMatch([]token.TokenType{token.LCUR}) {
		statements, err := parser.block()
		if err != nil {
			return nil, err
		}
		return ast.Block{Statements: statements, IsScope: true}, nil
	}

	if parser.isMatch([]token.TokenType{token.IF}) {
		return parser.ifStatement()
	}

	if parser.isMatch([]token.TokenType{token.WHILE}) {
		return parser.whileStatement()
	}

	if parser.isMatch([]token.TokenType{token.FOR}) {
		return parser.forStatement()
	}

	if parser.isMatch([]token.TokenType{token.RETURN}) {
		return parser.returnStatement()
	}

	return parser.simpleStatement()
}

// simpleStatement parses either an assignment ("target = value;") or a
// bare expression statement ("call(args);"), terminated by ';'.
func (parser *Parser) simpleStatement() (ast.Stmt, error) {
	expression, err := parser.expression()
	if err != nil {
		return nil, err
	}

	var stmt ast.Stmt
	if parser.isMatch([]token.TokenType{token.ASSIGN}) {
		value, err := parser.expression()
		if err != nil {
			return nil, err
		}
		stmt = ast.Assignment{Target: expression, Value: value}
	} else {
		stmt = ast.ExpressionStmt{Expression: expression}
	}

	if _, err := parser.consume(token.SEMICOLON, "Expected ';' after statement"); err != nil {
		return nil, err
	}
	return stmt, nil
}

// whileStatement parses a while loop statement from the token stream.
func (parser *Parser) whileStatement() (ast.Stmt, error) {
	expr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	body, err := parser.statement()
	if err != nil {
		return nil, err
	}

	return ast.While{
		Test: expr,
		Body: body,
	}, nil
}

// forStatement parses a C-style for loop and desugars it into a scoped
// block containing the optional init statement followed by a While loop
// whose body runs the loop body followed by the increment statement.
func (parser *Parser) forStatement() (ast.Stmt, error) {
	if _, err := parser.consume(token.LPA, "Expected '(' after 'for'"); err != nil {
		return nil, err
	}

	var init ast.Stmt
	if !parser.checkType(token.SEMICOLON) {
		var err error
		if parser.isMatch([]token.TokenType{token.VAR}) {
			init, err = parser.variableDeclaration()
		} else {
			init, err = parser.simpleStatement()
		}
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := parser.consume(token.SEMICOLON, "Expected ';'"); err != nil {
			return nil, err
		}
	}

	var test ast.Expression
	if !parser.checkType(token.SEMICOLON) {
		var err error
		test, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := parser.consume(token.SEMICOLON, "Expected ';' after loop condition"); err != nil {
		return nil, err
	}

	var increment ast.Stmt
	if !parser.checkType(token.RPA) {
		var err error
		increment, err = parser.simpleStatementNoSemicolon()
		if err != nil {
			return nil, err
		}
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after for clauses"); err != nil {
		return nil, err
	}

	body, err := parser.statement()
	if err != nil {
		return nil, err
	}

	if test == nil {
		test = ast.Literal{Value: true}
	}

	loopBody := []ast.Stmt{body}
	if increment != nil {
		loopBody = append(loopBody, increment)
	}

	loop := ast.While{
		Test: test,
		Body: ast.Block{Statements: loopBody, IsScope: true},
	}

	outerStatements := []ast.Stmt{}
	if init != nil {
		outerStatements = append(outerStatements, init)
	}
	outerStatements = append(outerStatements, loop)

	return ast.Block{Statements: outerStatements, IsScope: true}, nil
}

// simpleStatementNoSemicolon parses an assignment or bare expression without
// requiring a trailing ';'. Used for the for-loop increment clause.
func (parser *Parser) simpleStatementNoSemicolon() (ast.Stmt, error) {
	expression, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if parser.isMatch([]token.TokenType{token.ASSIGN}) {
		value, err := parser.expression()
		if err != nil {
			return nil, err
		}
		return ast.Assignment{Target: expression, Value: value}, nil
	}
	return ast.ExpressionStmt{Expression: expression}, nil
}

// returnStatement parses "return;" or "return <expr>;".
func (parser *Parser) returnStatement() (ast.Stmt, error) {
	if parser.isMatch([]token.TokenType{token.SEMICOLON}) {
		return ast.Return{Value: nil}, nil
	}
	value, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, "Expected ';' after return value"); err != nil {
		return nil, err
	}
	return ast.Return{Value: value}, nil
}

// ifStatement parses an if-statement from the token stream.
func (parser *Parser) ifStatement() (ast.Stmt, error) {
	conditionExpr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	thenStmt, err := parser.statement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt = ast.Block{Statements: nil, IsScope: true}
	if parser.isMatch([]token.TokenType{token.ELSE}) {
		stmt, err := parser.statement()
		if err != nil {
			return nil, err
		}
		elseStmt = stmt
	}

	return ast.If{
		Test: conditionExpr,
		Then: thenStmt,
		Else: elseStmt,
	}, nil
}

// block parses a block body consisting of a list of declarations or
// statements, up to and consuming the closing '}'.
func (parser *Parser) block() ([]ast.Stmt, error) {
	statements := []ast.Stmt{}

	for !parser.isMatch([]token.TokenType{token.RCUR}) && !parser.isFinished() {
		stmt, err := parser.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	previousToken := parser.previous()
	if previousToken.TokenType != token.RCUR {
		errMsg := fmt.Sprintf("Expected '%s' after block.", token.RCUR)
		err := CreateSyntaxError(previousToken.Line, previousToken.Column, errMsg)
		return nil, err
	}
	return statements, nil
}

// expression is the entry point for parsing expressions.
func (parser *Parser) expression() (ast.Expression, error) {
	return parser.or()
}

// or parses a logical OR expression from the token stream.
func (parser *Parser) or() (ast.Expression, error) {
	expr, err := parser.and()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.TokenType{token.OR}) {
		op := parser.previous()
		rightExpr, err := parser.and()
		if err != nil {
			return nil, err
		}
		expr = ast.BinaryOp{
			Left:     expr,
			Operator: op,
			Right:    rightExpr,
		}
	}

	return expr, nil
}

// and parses a logical AND expression from the token stream.
func (parser *Parser) and() (ast.Expression, error) {
	expr, err := parser.equality()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.TokenType{token.AND}) {
		op := parser.previous()
		rightExpr, err := parser.equality()
		if err != nil {
			return nil, err
		}

		expr = ast.BinaryOp{
			Left:     expr,
			Operator: op,
			Right:    rightExpr,
		}
	}
	return expr, nil
}

// equality parses equality expressions using operators "==" and "!=".
func (parser *Parser) equality() (ast.Expression, error) {
	exp, err := parser.comparison()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(equalityTokenTypes) {
		operator := parser.previous()
		right, err := parser.comparison()
		if err != nil {
			return nil, err
		}
		exp = ast.BinaryOp{
			Left:     exp,
			Operator: operator,
			Right:    right,
		}
	}
	return exp, nil
}

// comparison parses comparison expressions using operators "<", "<=", ">", ">=".
func (parser *Parser) comparison() (ast.Expression, error) {
	exp, err := parser.term()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(comparisonTokenTypes) {
		operator := parser.previous()
		right, err := parser.term()
		if err != nil {
			return nil, err
		}
		exp = ast.BinaryOp{
			Left:     exp,
			Operator: operator,
			Right:    right,
		}
	}
	return exp, nil
}

// term parses addition and subtraction expressions using operators "+" and "-".
func (parser *Parser) term() (ast.Expression, error) {
	exp, err := parser.factor()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(termTokenTypes) {
		operator := parser.previous()
		right, err := parser.factor()
		if err != nil {
			return nil, err
		}
		exp = ast.BinaryOp{
			Left:     exp,
			Operator: operator,
			Right:    right,
		}
	}
	return exp, nil
}

// factor parses multiplication and division expressions using operators "*" and "/".
func (parser *Parser) factor() (ast.Expression, error) {
	exp, err := parser.unary()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(factorExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		exp = ast.BinaryOp{
			Left:     exp,
			Operator: operator,
			Right:    right,
		}
	}
	return exp, nil
}

// unary parses unary prefix expressions using operators "!" or "-".
func (parser *Parser) unary() (ast.Expression, error) {
	if parser.isMatch(unaryExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryOp{
			Operator: operator,
			Right:    right,
		}, nil
	}
	return parser.call()
}

// call parses a primary expression followed by any chain of function
// calls and dotted field accesses/method calls.
func (parser *Parser) call() (ast.Expression, error) {
	expr, err := parser.primary()
	if err != nil {
		return nil, err
	}

	for {
		if parser.isMatch([]token.TokenType{token.DOT}) {
			name, err := parser.consume(token.IDENTIFIER, "Expected field or method name after '.'")
			if err != nil {
				return nil, err
			}
			if parser.isMatch([]token.TokenType{token.LPA}) {
				args, err := parser.arguments()
				if err != nil {
					return nil, err
				}
				expr = ast.Dot{Object: expr, Name: name, Args: args, IsCall: true}
			} else {
				expr = ast.Dot{Object: expr, Name: name, IsCall: false}
			}
			continue
		}
		break
	}

	return expr, nil
}

// arguments parses a comma-separated argument list up to and including
// the closing ')'. The opening '(' must already have been consumed.
func (parser *Parser) arguments() ([]ast.Expression, error) {
	var args []ast.Expression
	if !parser.checkType(token.RPA) {
		for {
			arg, err := parser.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after arguments"); err != nil {
		return nil, err
	}
	return args, nil
}

// primary parses the most basic forms of expressions:
//   - Literals: true, false, null, strings, numbers
//   - Identifiers, function calls, and list literals
//   - Grouping: (expression)
//
// If no valid token matches, returns a syntax error.
func (parser *Parser) primary() (ast.Expression, error) {
	if parser.isMatch([]token.TokenType{token.FALSE}) {
		return ast.Literal{Value: false}, nil
	}
	if parser.isMatch([]token.TokenType{token.NULL}) {
		return ast.Literal{Value: nil}, nil
	}
	if parser.isMatch([]token.TokenType{token.TRUE}) {
		return ast.Literal{Value: true}, nil
	}

	if parser.isMatch([]token.TokenType{token.FLOAT, token.INT, token.STRING}) {
		return ast.Literal{Value: parser.previous().Literal}, nil
	}

	if parser.isMatch([]token.TokenType{token.LBRACKET}) {
		return parser.listLiteral()
	}

	if parser.isMatch([]token.TokenType{token.IDENTIFIER}) {
		name := parser.previous()
		if parser.isMatch([]token.TokenType{token.LPA}) {
			args, err := parser.arguments()
			if err != nil {
				return nil, err
			}
			return ast.FunCall{Name: name, Args: args}, nil
		}
		return ast.Identifier{Name: name}, nil
	}

	if parser.isMatch([]token.TokenType{token.LPA}) {
		expr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		_, consumeErr := parser.consume(token.RPA, fmt.Sprintf("expression is missing '%s'", token.RPA))
		if consumeErr != nil {
			return nil, consumeErr
		}
		return expr, nil
	}

	currentToken := parser.peek()
	return nil, CreateSyntaxError(currentToken.Line, currentToken.Column, "Unrecognised expression.")
}

// listLiteral parses "[item, item, ...]". The opening '[' must already
// have been consumed.
func (parser *Parser) listLiteral() (ast.Expression, error) {
	var items []ast.Expression
	if !parser.checkType(token.RBRACKET) {
		for {
			item, err := parser.expression()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RBRACKET, "Expected ']' after list items"); err != nil {
		return nil, err
	}
	return ast.List{Items: items}, nil
}

// Consumes the current token by advancing the parsers current position by
// one unit if the `tokenType` matches the token type of the parsers current
// position.
func (parser *Parser) consume(tokenType token.TokenType, errorMessage string) (token.Token, error) {
	if parser.checkType(tokenType) {
		return parser.advance(), nil
	}
	currentToken := parser.peek()
	return token.CreateToken(token.EOF, 0, 0), CreateSyntaxError(currentToken.Line, currentToken.Column, errorMessage)
}
